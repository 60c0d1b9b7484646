package main

import (
	"github.com/alexisbeaulieu97/signalboard/internal/config"
	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	"github.com/alexisbeaulieu97/signalboard/internal/signals/boardhealth"
	"github.com/alexisbeaulieu97/signalboard/internal/signals/commitage"
	"github.com/alexisbeaulieu97/signalboard/internal/signals/dogwalk"
	"github.com/alexisbeaulieu97/signalboard/internal/signals/medcheck"
	"github.com/alexisbeaulieu97/signalboard/internal/signals/servicehealth"
	"github.com/alexisbeaulieu97/signalboard/internal/signals/wisdom"
)

// buildersFromConfig is the compiled-in signal table. Adding a signal means
// adding a builder here; there is no runtime plugin discovery.
func buildersFromConfig(cfg config.Config) []signal.Builder {
	sig := cfg.Signals

	return []signal.Builder{
		boardhealth.New,
		func() (signal.Signal, error) {
			return servicehealth.New(servicehealth.Options{BaseURL: sig.ServiceHealthBaseURL})
		},
		func() (signal.Signal, error) {
			return dogwalk.New(dogwalk.Options{BaseURL: sig.DogWalkBaseURL})
		},
		func() (signal.Signal, error) {
			return medcheck.New(medcheck.Options{
				BaseURL:   sig.MedCheckBaseURL,
				BadWithin: sig.MedCheckBadWithin,
			})
		},
		func() (signal.Signal, error) {
			return commitage.New(commitage.Options{
				RepoPath: sig.RepoPath,
				Owner:    sig.GitHubOwner,
				Repo:     sig.GitHubRepo,
				Token:    sig.GitHubToken,
				WarnDays: sig.CommitWarnDays,
				BadDays:  sig.CommitBadDays,
			})
		},
		func() (signal.Signal, error) {
			return wisdom.New(wisdom.Options{
				OllamaBaseURL: sig.OllamaBaseURL,
				Model:         sig.WisdomModel,
				Timezone:      sig.WisdomTimezone,
			})
		},
	}
}
