package classifier

import "strings"

// Температурные зоны хранения.
const (
	ZoneFrozen  = "Frozen"
	ZoneChilled = "Chilled"
	ZoneAmbient = "Ambient"
)

// TemperatureFromTags — правило очистки каталога.
// Frozen проверяется раньше Chilled: "fresh frozen" уходит в Frozen.
func TemperatureFromTags(tags, categoryBlob string) string {
	blob := strings.ToLower(tags + " " + categoryBlob)
	if containsAny(blob, "frozen", "ice") {
		return ZoneFrozen
	}
	if containsAny(blob, "chill", "cold", "fresh") {
		return ZoneChilled
	}
	return ZoneAmbient
}

type zoneKeyword struct {
	keyword string
	zone    string
}

var importZones = []zoneKeyword{
	{"frozen", ZoneFrozen},
	{"chill", ZoneChilled},
	{"cold", ZoneChilled},
	{"ambient", ZoneAmbient},
}

// TemperatureFromKeywords — правило импорта: теги и категория, первое совпадение.
func TemperatureFromKeywords(tags []string, category string) string {
	combined := strings.ToLower(strings.Join(append(append([]string{}, tags...), category), " "))
	for _, z := range importZones {
		if strings.Contains(combined, z.keyword) {
			return z.zone
		}
	}
	return ZoneAmbient
}
