package weather

type Condition string

const (
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionUnknown Condition = "unknown"
)

// conditions maps WMO weather interpretation codes to a display condition.
// Fog is shown as cloudy.
var conditions = map[int]Condition{
	0:  ConditionClear,
	1:  ConditionClear,
	2:  ConditionCloudy,
	3:  ConditionCloudy,
	45: ConditionCloudy,
	48: ConditionCloudy,
	51: ConditionRain,
	53: ConditionRain,
	55: ConditionRain,
	56: ConditionRain,
	57: ConditionRain,
	61: ConditionRain,
	63: ConditionRain,
	65: ConditionRain,
	66: ConditionRain,
	67: ConditionRain,
	80: ConditionRain,
	81: ConditionRain,
	82: ConditionRain,
	71: ConditionSnow,
	73: ConditionSnow,
	75: ConditionSnow,
	77: ConditionSnow,
	85: ConditionSnow,
	86: ConditionSnow,
	95: ConditionStorm,
	96: ConditionStorm,
	99: ConditionStorm,
}

func Classify(code int) Condition {
	if c, ok := conditions[code]; ok {
		return c
	}
	return ConditionUnknown
}
