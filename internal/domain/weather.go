package domain

// WeatherCategory is the closed set of weather groups the models were trained on.
type WeatherCategory string

const (
	WeatherHeavyRain      WeatherCategory = "Heavy Rain"
	WeatherRain           WeatherCategory = "Rain"
	WeatherHeavySnowSleet WeatherCategory = "Heavy Snow/Sleet"
	WeatherSnowSleet      WeatherCategory = "Snow/Sleet"
	WeatherFogLowVis      WeatherCategory = "Fog/Low-Vis"
	WeatherCloudy         WeatherCategory = "Cloudy/Overcast"
	WeatherUnknown        WeatherCategory = "Unknown"
)

// WeatherCategories lists every category in indicator-column order.
var WeatherCategories = []WeatherCategory{
	WeatherCloudy,
	WeatherFogLowVis,
	WeatherHeavyRain,
	WeatherHeavySnowSleet,
	WeatherRain,
	WeatherSnowSleet,
	WeatherUnknown,
}

// weatherBand maps a half-open code range [lo, hi) to a category, with
// individual codes escalated to a heavier category.
type weatherBand struct {
	lo, hi    int
	category  WeatherCategory
	escalated map[int]WeatherCategory
}

// weatherBands is the calibration table. Boundaries and carve-outs must not
// drift from what the models were trained with.
var weatherBands = []weatherBand{
	{lo: 200, hi: 300, category: WeatherHeavyRain},
	{lo: 300, hi: 400, category: WeatherRain},
	{lo: 500, hi: 600, category: WeatherRain, escalated: map[int]WeatherCategory{
		502: WeatherHeavyRain, // heavy intensity rain
		503: WeatherHeavyRain, // very heavy rain
		504: WeatherHeavyRain, // extreme rain
	}},
	{lo: 600, hi: 700, category: WeatherSnowSleet, escalated: map[int]WeatherCategory{
		602: WeatherHeavySnowSleet, // heavy snow
		622: WeatherHeavySnowSleet, // heavy shower snow
	}},
	{lo: 700, hi: 800, category: WeatherFogLowVis},
	{lo: 800, hi: 805, category: WeatherCloudy},
}

// CategorizeWeather maps a provider weather code to its category. It is total:
// codes outside every band map to WeatherUnknown.
func CategorizeWeather(code int) WeatherCategory {
	for _, b := range weatherBands {
		if code < b.lo || code >= b.hi {
			continue
		}
		if c, ok := b.escalated[code]; ok {
			return c
		}
		return b.category
	}
	return WeatherUnknown
}
