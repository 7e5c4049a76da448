package model

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Settings пользовательские настройки витрины. В хранилище лежат одной JSON-строкой.
type Settings struct {
	ContractAddress string `json:"contractAddress"`
	Theme           string `json:"theme"`
	Notifications   bool   `json:"notifications"`
}

// SettingsPatch частичное обновление настроек: nil-поля не меняются.
type SettingsPatch struct {
	ContractAddress *string `json:"contractAddress" binding:"omitempty,eth_addr"`
	Theme           *string `json:"theme" binding:"omitempty,oneof=light dark"`
	Notifications   *bool   `json:"notifications"`
}

// Apply возвращает копию настроек с примененным патчем.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.ContractAddress != nil {
		s.ContractAddress = *p.ContractAddress
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	return s
}
