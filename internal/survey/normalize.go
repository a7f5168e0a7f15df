package survey

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownOption = errors.New("unknown option")
	ErrOutOfRange    = errors.New("value out of range")
	ErrMissingAnswer = errors.New("answer is required")
)

// Answers holds one raw answer per survey question, as the user chose them.
type Answers struct {
	Sex                string  `json:"sex" binding:"required"`
	GeneralHealth      string  `json:"general_health" binding:"required"`
	PhysicalHealthDays *int    `json:"physical_health_days" binding:"required,min=0,max=30"`
	Stroke             string  `json:"stroke" binding:"required"`
	FruitVeg           string  `json:"fruit_veg" binding:"required"`
	PhysicalActivity   string  `json:"physical_activity" binding:"required"`
	HeartDisease       string  `json:"heart_disease" binding:"required"`
	Race               string  `json:"race" binding:"required"`
	AgeGroup           string  `json:"age_group" binding:"required"`
	BMI                float64 `json:"bmi" binding:"required,gte=10,lte=60"`
	Education          string  `json:"education" binding:"required"`
	Smoker             string  `json:"smoker" binding:"required"`
	Income             string  `json:"income" binding:"required"`
}

// Days returns a days answer for Answers.PhysicalHealthDays. The field is a
// pointer so that an omitted answer is not read as zero days.
func Days(n int) *int { return &n }

// FieldError reports which answer could not be encoded.
type FieldError struct {
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v (got %q)", e.Field, e.Err, fmt.Sprint(e.Value))
}

func (e *FieldError) Unwrap() error { return e.Err }

// FieldErrors flattens an error returned by Normalize into its field errors.
func FieldErrors(err error) []*FieldError {
	if err == nil {
		return nil
	}
	var out []*FieldError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, FieldErrors(e)...)
		}
		return out
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		out = append(out, fe)
	}
	return out
}

type selectField struct {
	feature Feature
	key     string
	options []string
	label   string
}

// Normalize encodes answers into the model's feature vector. Every invalid
// answer is reported; the returned error wraps ErrUnknownOption,
// ErrOutOfRange or ErrMissingAnswer for each offending field.
func Normalize(a Answers) (FeatureVector, error) {
	var v FeatureVector
	var errs []error

	selects := []selectField{
		{Sex, "sex", SexOptions, a.Sex},
		{GeneralHealth, "general_health", GeneralHealthOptions, a.GeneralHealth},
		{Stroke, "stroke", YesNoOptions, a.Stroke},
		{FruitVeg, "fruit_veg", YesNoOptions, a.FruitVeg},
		{PhysicalActivity, "physical_activity", YesNoOptions, a.PhysicalActivity},
		{HeartDisease, "heart_disease", YesNoOptions, a.HeartDisease},
		{Race, "race", RaceOptions, a.Race},
		{AgeGroup, "age_group", AgeGroupOptions, a.AgeGroup},
		{Education, "education", EducationOptions, a.Education},
		{Smoker, "smoker", SmokerOptions, a.Smoker},
		{Income, "income", IncomeOptions, a.Income},
	}
	for _, s := range selects {
		pos := position(s.options, s.label)
		if pos == 0 {
			errs = append(errs, &FieldError{Field: s.key, Value: s.label, Err: ErrUnknownOption})
			continue
		}
		v.values[s.feature] = float64(pos)
	}

	if a.PhysicalHealthDays == nil {
		errs = append(errs, &FieldError{Field: "physical_health_days", Value: "", Err: ErrMissingAnswer})
	} else {
		days, err := EncodePhysicalHealthDays(*a.PhysicalHealthDays)
		if err != nil {
			errs = append(errs, &FieldError{Field: "physical_health_days", Value: *a.PhysicalHealthDays, Err: err})
		}
		v.values[PhysicalHealthDays] = days
	}

	bmi, err := EncodeBMI(a.BMI)
	if err != nil {
		errs = append(errs, &FieldError{Field: "bmi", Value: a.BMI, Err: err})
	}
	v.values[BMI] = bmi

	v.values[Year] = SurveyYear

	if len(errs) > 0 {
		return FeatureVector{}, errors.Join(errs...)
	}
	return v, nil
}

// EncodePhysicalHealthDays maps 0 to the "none" sentinel and passes 1..30 through.
func EncodePhysicalHealthDays(days int) (float64, error) {
	if days < MinPhysicalHealthDays || days > MaxPhysicalHealthDays {
		return 0, ErrOutOfRange
	}
	if days == 0 {
		return NoPoorHealthDays, nil
	}
	return float64(days), nil
}

// EncodeBMI returns round(bmi*100), the fixed-point scale of the training data.
func EncodeBMI(bmi float64) (float64, error) {
	if bmi != bmi || bmi < MinBMI || bmi > MaxBMI {
		return 0, ErrOutOfRange
	}
	return decimal.NewFromFloat(bmi).Shift(2).Round(0).InexactFloat64(), nil
}
