package cmd

import (
	"flag"

	"github.com/etnz/rebalance/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion of rbl.
// Run 'COMP_INSTALL=1 rbl' to install it.
func Completion() *complete.Command {
	files := predict.Files("*")
	plan := &complete.Command{
		Flags: map[string]complete.Predictor{
			"p":           files,
			"t":           predict.Files("*.json"),
			"a":           predict.Files("*.csv"),
			"o":           files,
			"funds":       predict.Something,
			"refresh":     predict.Nothing,
			"placeholder": predict.Something,
			"json":        predict.Nothing,
			"raw":         predict.Nothing,
		},
	}
	topics, _ := docs.GetAllTopics()

	c := &complete.Command{
		Sub: map[string]*complete.Command{
			"plan": plan,
			"value": {Flags: map[string]complete.Predictor{
				"p":       files,
				"refresh": predict.Nothing,
				"raw":     predict.Nothing,
			}},
			"quote": {Flags: map[string]complete.Predictor{
				"w":   files,
				"raw": predict.Nothing,
			}},
			"search": {Flags: map[string]complete.Predictor{"raw": predict.Nothing}},
			"topic": {
				Flags: map[string]complete.Predictor{"raw": predict.Nothing},
				Args:  predict.Set(topics),
			},
			"assist": {Flags: map[string]complete.Predictor{
				"p": files,
				"t": predict.Files("*.json"),
			}},
			"help": {},
		},
		Flags: map[string]complete.Predictor{},
	}
	flag.VisitAll(func(f *flag.Flag) {
		switch f.Name {
		case "config":
			c.Flags[f.Name] = predict.Files("*.yaml")
		case "provider":
			c.Flags[f.Name] = predict.Set{"yahoo", "eodhd", "none"}
		case "v":
			c.Flags[f.Name] = predict.Nothing
		default:
			c.Flags[f.Name] = predict.Something
		}
	})
	return c
}
