package survey

// Feature identifies one position in the model's input vector.
type Feature int

const (
	Sex Feature = iota
	GeneralHealth
	PhysicalHealthDays
	Stroke
	FruitVeg
	PhysicalActivity
	HeartDisease
	Race
	AgeGroup
	BMI
	Education
	Smoker
	Year
	Income
)

// FeatureCount is the length of every FeatureVector.
const FeatureCount = 14

var featureNames = [FeatureCount]string{
	"SEX", "GENHLTH", "PHYSHLTH", "CVDSTRK3", "RFHLTH", "TOTINDA", "MICHD",
	"RACE", "AGEGRP", "BMI", "EDUCATION", "SMOKER", "Year", "INCOME",
}

// Training data uses "_MICHD" for the heart disease column.
var featureColumns = [FeatureCount]string{
	"SEX", "GENHLTH", "PHYSHLTH", "CVDSTRK3", "RFHLTH", "TOTINDA", "_MICHD",
	"RACE", "AGEGRP", "BMI", "EDUCATION", "SMOKER", "Year", "INCOME",
}

func (f Feature) String() string {
	if f < 0 || int(f) >= FeatureCount {
		return "UNKNOWN"
	}
	return featureNames[f]
}

// Column is the name the model was trained with.
func (f Feature) Column() string {
	if f < 0 || int(f) >= FeatureCount {
		return "UNKNOWN"
	}
	return featureColumns[f]
}

// FeatureNames returns the display names in model order.
func FeatureNames() []string {
	out := make([]string, FeatureCount)
	copy(out, featureNames[:])
	return out
}

// Columns returns the training column names in model order.
func Columns() []string {
	out := make([]string, FeatureCount)
	copy(out, featureColumns[:])
	return out
}

// FeatureVector is the ordered numeric encoding of one set of answers.
// It is a value type; once built it cannot be changed.
type FeatureVector struct {
	values [FeatureCount]float64
}

// Get returns the encoded value of f.
func (v FeatureVector) Get(f Feature) float64 {
	return v.values[f]
}

// Values returns a copy of the encoded values in model order.
func (v FeatureVector) Values() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v.values[:])
	return out
}

// Len is always FeatureCount.
func (v FeatureVector) Len() int { return len(v.values) }
