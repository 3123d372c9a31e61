package models

// Dataset is a named seed vocabulary list; its ID doubles as a catalog tag
type Dataset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Words       []Word `json:"data"`
}
