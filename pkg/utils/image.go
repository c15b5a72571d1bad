// Package utils предоставляет утилиты для обработки изображений.
package utils

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Регистрируем GIF декодер
	"image/jpeg"
	_ "image/png" // Регистрируем PNG декодер

	"github.com/nfnt/resize"
)

// JPEGContentType — content type результата ResizeImage.
const JPEGContentType = "image/jpeg"

// ResizeImage ужимает изображение до maxWidth, сохраняя пропорции, и кодирует в JPEG.
//
// Параметры:
//   - data: байты исходного изображения (JPEG, PNG, GIF)
//   - maxWidth: целевая ширина. Если 0 или картинка уже уже — только перекодирование.
//   - quality: качество JPEG (1-100).
//
// Всегда возвращает JPEG (см. JPEGContentType), чтобы ключи *.jpg в бакете
// соответствовали содержимому.
func ResizeImage(data []byte, maxWidth int, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if maxWidth > 0 && bounds.Dx() > maxWidth {
		// Высота 0 — resize сам сохранит aspect ratio
		img = resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
