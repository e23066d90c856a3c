package dto

// UpdateSettingsRequest changes one or both system settings.
type UpdateSettingsRequest struct {
	ReturnWindowDays      *int `json:"returnWindowDays"`
	ReviewEditWindowHours *int `json:"reviewEditWindowHours"`
}
