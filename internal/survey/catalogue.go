package survey

import "strings"

// Question describes one survey input as the form presents it.
type Question struct {
	Key     string   `json:"key"`
	Prompt  string   `json:"prompt"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
	Min     float64  `json:"min,omitempty"`
	Max     float64  `json:"max,omitempty"`
	Step    float64  `json:"step,omitempty"`
	Help    string   `json:"help,omitempty"`
	Default any      `json:"default"`
}

const (
	KindSelect = "select"
	KindSlider = "slider"
	KindNumber = "number"
)

// Option catalogues. Position in each slice is the encoded value minus one,
// so the order here must never change.
var (
	SexOptions           = []string{"Male", "Female"}
	GeneralHealthOptions = []string{"Excellent", "Very good", "Good", "Fair", "Poor"}
	YesNoOptions         = []string{"Yes", "No"}
	RaceOptions          = []string{
		"White only, non-Hispanic",
		"Black only, non-Hispanic",
		"American Indian/Alaskan Native only",
		"Asian only",
		"Native Hawaiian/Other Pacific Islander only",
		"Other race only",
		"Multiracial, non-Hispanic",
		"Hispanic",
	}
	AgeGroupOptions = []string{
		"18–24", "25–29", "30–34", "35–39", "40–44", "45–49",
		"50–54", "55–59", "60–64", "65–69", "70–74", "75–79", "80+",
	}
	EducationOptions = []string{
		"Did not graduate high school",
		"Graduated high school",
		"Attended college/technical school",
		"Graduated college/technical school",
	}
	SmokerOptions = []string{"Current – every day", "Current – some days", "Former smoker", "Never smoked"}
	IncomeOptions = []string{
		"<$15,000", "$15,000–<$25,000", "$25,000–<$35,000", "$35,000–<$50,000", "$50,000+",
	}
)

const (
	MinPhysicalHealthDays = 0
	MaxPhysicalHealthDays = 30
	MinBMI                = 10.0
	MaxBMI                = 60.0

	// NoPoorHealthDays is the survey code for "none" on the physical health
	// question. Zero is reserved in the source survey.
	NoPoorHealthDays = 88.0

	// SurveyYear is the fixed Year feature.
	SurveyYear = 2023.0
)

// DefaultAnswers returns the answers the form preselects.
func DefaultAnswers() Answers {
	return Answers{
		Sex:                "Female",
		GeneralHealth:      "Good",
		PhysicalHealthDays: Days(5),
		Stroke:             "No",
		FruitVeg:           "Yes",
		PhysicalActivity:   "Yes",
		HeartDisease:       "No",
		Race:               RaceOptions[0],
		AgeGroup:           AgeGroupOptions[7],
		BMI:                25.5,
		Education:          EducationOptions[2],
		Smoker:             SmokerOptions[3],
		Income:             IncomeOptions[4],
	}
}

// Catalogue lists every question in form order with its options and default.
func Catalogue() []Question {
	d := DefaultAnswers()
	return []Question{
		{Key: "sex", Prompt: "Sex", Kind: KindSelect, Options: SexOptions, Default: d.Sex},
		{Key: "general_health", Prompt: "How would you rate your general health?", Kind: KindSelect, Options: GeneralHealthOptions, Default: d.GeneralHealth},
		{
			Key:     "physical_health_days",
			Prompt:  "During the past 30 days, how many days was your physical health not good?",
			Kind:    KindSlider,
			Min:     MinPhysicalHealthDays,
			Max:     MaxPhysicalHealthDays,
			Step:    1,
			Help:    "0-30 = Number of days, 88 = None",
			Default: *d.PhysicalHealthDays,
		},
		{Key: "stroke", Prompt: "Ever told by a doctor that you had a stroke?", Kind: KindSelect, Options: YesNoOptions, Default: d.Stroke},
		{Key: "fruit_veg", Prompt: "Do you get enough fruits and vegetables?", Kind: KindSelect, Options: YesNoOptions, Default: d.FruitVeg},
		{Key: "physical_activity", Prompt: "Did you do any physical activity or exercise in the past month?", Kind: KindSelect, Options: YesNoOptions, Default: d.PhysicalActivity},
		{Key: "heart_disease", Prompt: "Ever told you had coronary heart disease or heart attack?", Kind: KindSelect, Options: YesNoOptions, Default: d.HeartDisease},
		{Key: "race", Prompt: "Race / Ethnicity", Kind: KindSelect, Options: RaceOptions, Default: d.Race},
		{Key: "age_group", Prompt: "Your age group", Kind: KindSelect, Options: AgeGroupOptions, Default: d.AgeGroup},
		{Key: "bmi", Prompt: "Your Body Mass Index (BMI)", Kind: KindNumber, Min: MinBMI, Max: MaxBMI, Step: 0.1, Default: d.BMI},
		{Key: "education", Prompt: "Highest level of education", Kind: KindSelect, Options: EducationOptions, Default: d.Education},
		{Key: "smoker", Prompt: "Smoking status", Kind: KindSelect, Options: SmokerOptions, Default: d.Smoker},
		{Key: "income", Prompt: "Income category", Kind: KindSelect, Options: IncomeOptions, Default: d.Income},
	}
}

// position returns the 1-based index of label within options, or 0.
// Labels compare after trimming, case folding and treating an en dash as '-'.
func position(options []string, label string) int {
	want := canonical(label)
	if want == "" {
		return 0
	}
	for i, opt := range options {
		if canonical(opt) == want {
			return i + 1
		}
	}
	return 0
}

func canonical(s string) string {
	s = strings.ReplaceAll(s, "–", "-")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
