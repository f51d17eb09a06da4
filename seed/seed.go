package seed

import (
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/turnon/taskdb/server"
	"github.com/turnon/taskdb/store"
	"github.com/turnon/taskdb/task"
)

const mod = "seed"

var states = []string{"open", "closed"}

var words = []string{
	"refactor", "deploy", "review", "backup", "rotate", "archive",
	"migrate", "monitor", "upgrade", "clean", "index", "report",
}

// Run fills the configured collection with count random tasks
func Run(cfgPath string, count int) {
	cfg, err := server.LoadConfig(cfgPath)
	if err != nil {
		logFatal(err)
	}

	tasks, err := store.Open(cfg.Storage.Dir, cfg.Collection)
	if err != nil {
		logFatal(err)
	}

	records := make([]task.Task, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, randomTask())
	}

	if err := tasks.BulkInsert(records); err != nil {
		logFatal(err)
	}
	log.Info().Str("mod", mod).Int("count", count).Msg("seeded")
}

// randomTask picks a two-word name and a random lifecycle state
func randomTask() task.Task {
	name := words[rand.Intn(len(words))] + " " + words[rand.Intn(len(words))]
	return task.New(name, states[rand.Intn(len(states))])
}

func logFatal(err error) {
	log.Fatal().Stack().Err(err).Send()
}
