// Package materials — таблица складских материалов и upsert по SKU.
package materials

import "time"

// DefaultTable — имя таблицы по умолчанию.
const DefaultTable = "materials"

// Record — строка таблицы materials.
//
// SafeStock — независимый порог, он не обязан быть меньше Quantity.
type Record struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	Name            string    `gorm:"not null" json:"name"`
	SKU             string    `gorm:"column:sku;uniqueIndex:idx_materials_sku;not null" json:"sku"`
	Category        string    `json:"category"`
	Quantity        int       `gorm:"not null;default:0" json:"quantity"`
	Unit            string    `json:"unit"`
	SafeStock       int       `gorm:"not null;default:0" json:"safe_stock"`
	Location        string    `json:"location"`
	UnitOfMeasure   string    `json:"unit_of_measure"`
	TemperatureZone string    `json:"temperature_zone"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// TableName — таблица по умолчанию. Repository может писать в другую.
func (Record) TableName() string {
	return DefaultTable
}

// derivedColumns обновляются при конфликте по SKU.
// Импорт — источник истины для этих полей: ручная правка quantity перезаписывается.
var derivedColumns = []string{
	"name", "category", "quantity", "unit", "safe_stock",
	"location", "unit_of_measure", "temperature_zone", "updated_at",
}
