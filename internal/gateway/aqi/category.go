package aqi

// Category describes the health band an AQI value falls into.
type Category struct {
	Level       string `json:"level"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

var bands = []struct {
	max int
	Category
}{
	{50, Category{"Good", "#00e400", "Air quality is satisfactory"}},
	{100, Category{"Moderate", "#ffff00", "Air quality is acceptable"}},
	{150, Category{"Unhealthy for Sensitive Groups", "#ff7e00", "Sensitive groups may experience health effects"}},
	{200, Category{"Unhealthy", "#ff0000", "Everyone may begin to experience health effects"}},
	{300, Category{"Very Unhealthy", "#8f3f97", "Health alert: everyone may experience serious effects"}},
}

var hazardous = Category{"Hazardous", "#7e0023", "Health warnings of emergency conditions"}

// CategoryOf returns the band for an AQI value. Bounds are inclusive.
func CategoryOf(aqi int) Category {
	for _, b := range bands {
		if aqi <= b.max {
			return b.Category
		}
	}
	return hazardous
}
