package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Skufu/diabetes-risk/internal/config"
	"github.com/Skufu/diabetes-risk/internal/observability"
	"github.com/Skufu/diabetes-risk/internal/pipeline"
	"github.com/Skufu/diabetes-risk/internal/server"
	"github.com/Skufu/diabetes-risk/internal/survey"
)

type assessOutput struct {
	ID          string    `json:"id"`
	Probability float64   `json:"probability"`
	Percent     string    `json:"percent"`
	Tier        string    `json:"tier"`
	Message     string    `json:"message"`
	Model       string    `json:"model"`
	Features    []string  `json:"features"`
	Values      []float64 `json:"values"`
	Advice      string    `json:"advice,omitempty"`
	AdviceError string    `json:"advice_error,omitempty"`
	Disclaimer  string    `json:"disclaimer"`
}

func newAssessCmd(v *viper.Viper) *cobra.Command {
	var (
		input      string
		skipAdvice bool
		days       int
		flagged    = survey.DefaultAnswers()
	)

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Score one set of answers and print the result as JSON",
		Long: "Score one set of answers and print the result as JSON.\n\n" +
			"Answers start from the form defaults, are replaced by --input when given, " +
			"and finally by any answer flag set on the command line.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromViper(v)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}

			answers := survey.DefaultAnswers()
			if input != "" {
				if answers, err = readAnswers(cmd.InOrStdin(), input); err != nil {
					return err
				}
			}
			flagged.PhysicalHealthDays = survey.Days(days)
			overlayChanged(cmd.Flags(), &answers, flagged)

			logger := observability.NewCLILogger(cfg.Logger)
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				_ = logger.Sync()
				return err
			}
			defer a.Close()

			res, err := a.pipeline.Assess(cmd.Context(), answers, pipeline.AssessOptions{SkipAdvice: skipAdvice})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", `JSON file with answers, "-" for stdin`)
	f.BoolVar(&skipAdvice, "skip-advice", false, "do not call the advice model")

	f.StringVar(&flagged.Sex, "sex", flagged.Sex, "sex")
	f.StringVar(&flagged.GeneralHealth, "general-health", flagged.GeneralHealth, "general health rating")
	f.IntVar(&days, "physical-health-days", *flagged.PhysicalHealthDays, "days of poor physical health in the past 30")
	f.StringVar(&flagged.Stroke, "stroke", flagged.Stroke, "ever had a stroke (Yes/No)")
	f.StringVar(&flagged.FruitVeg, "fruit-veg", flagged.FruitVeg, "enough fruit and vegetables (Yes/No)")
	f.StringVar(&flagged.PhysicalActivity, "physical-activity", flagged.PhysicalActivity, "any exercise in the past month (Yes/No)")
	f.StringVar(&flagged.HeartDisease, "heart-disease", flagged.HeartDisease, "coronary heart disease or heart attack (Yes/No)")
	f.StringVar(&flagged.Race, "race", flagged.Race, "race/ethnicity")
	f.StringVar(&flagged.AgeGroup, "age-group", flagged.AgeGroup, "age group, e.g. 55-59")
	f.Float64Var(&flagged.BMI, "bmi", flagged.BMI, "body mass index")
	f.StringVar(&flagged.Education, "education", flagged.Education, "highest education")
	f.StringVar(&flagged.Smoker, "smoker", flagged.Smoker, "smoking status")
	f.StringVar(&flagged.Income, "income", flagged.Income, "household income")
	return cmd
}

func readAnswers(stdin io.Reader, path string) (survey.Answers, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return survey.Answers{}, fmt.Errorf("open answers: %w", err)
		}
		defer f.Close()
		r = f
	}

	answers := survey.DefaultAnswers()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&answers); err != nil {
		return survey.Answers{}, fmt.Errorf("decode answers: %w", err)
	}
	return answers, nil
}

// overlayChanged copies answers whose flag was set explicitly.
func overlayChanged(fs *pflag.FlagSet, dst *survey.Answers, src survey.Answers) {
	set := map[string]func(){
		"sex":                  func() { dst.Sex = src.Sex },
		"general-health":       func() { dst.GeneralHealth = src.GeneralHealth },
		"physical-health-days": func() { dst.PhysicalHealthDays = src.PhysicalHealthDays },
		"stroke":               func() { dst.Stroke = src.Stroke },
		"fruit-veg":            func() { dst.FruitVeg = src.FruitVeg },
		"physical-activity":    func() { dst.PhysicalActivity = src.PhysicalActivity },
		"heart-disease":        func() { dst.HeartDisease = src.HeartDisease },
		"race":                 func() { dst.Race = src.Race },
		"age-group":            func() { dst.AgeGroup = src.AgeGroup },
		"bmi":                  func() { dst.BMI = src.BMI },
		"education":            func() { dst.Education = src.Education },
		"smoker":               func() { dst.Smoker = src.Smoker },
		"income":               func() { dst.Income = src.Income },
	}
	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := set[f.Name]; ok {
			apply()
		}
	})
}

func writeResult(w io.Writer, res *pipeline.Result) error {
	out := assessOutput{
		ID:          res.ID.String(),
		Probability: res.Estimate.Probability,
		Percent:     res.Estimate.Percent(),
		Tier:        res.Estimate.Tier.String(),
		Message:     res.Estimate.Message(),
		Model:       res.Model,
		Features:    survey.FeatureNames(),
		Values:      res.Features.Values(),
		Advice:      res.Advice,
		Disclaimer:  server.Disclaimer,
	}
	if res.AdviceError != nil {
		out.AdviceError = res.AdviceError.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
