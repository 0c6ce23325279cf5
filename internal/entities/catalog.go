package entities

// Catalog tables filled from XML exports. Primary keys come from the source
// system, so they are never auto-incremented here.

type Province struct {
	ID      int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name    string `gorm:"size:100;not null" json:"name"`
	ISOCode string `gorm:"size:10" json:"iso_code,omitempty"`
	Active  bool   `gorm:"default:true" json:"active"`
}

func (Province) TableName() string {
	return "provinces"
}

type Locality struct {
	ID         int64   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name       string  `gorm:"size:150;not null;index" json:"name"`
	ProvinceID int64   `gorm:"index" json:"province_id"`
	PostalCode string  `gorm:"size:10" json:"postal_code,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	Active     bool    `gorm:"default:true" json:"active"`
}

func (Locality) TableName() string {
	return "localities"
}
