package models

// Variant is one cell of the brightness/contrast sweep for a source image.
type Variant struct {
	FileName   string  `json:"fileName"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	ImageData  string  `json:"imageData"`
}
