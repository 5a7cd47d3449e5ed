package main

import (
	"github.com/rs/zerolog"

	"github.com/sigreer/devrm/internal/db"
	"github.com/sigreer/devrm/internal/executor"
	"github.com/sigreer/devrm/internal/resolve"
)

// journalRun records one delete invocation. A zero value (journal
// disabled or unavailable) ignores every call.
type journalRun struct {
	db  *db.DB
	id  string
	log zerolog.Logger
}

// openJournal starts a run record when a journal path is configured.
// Journal failures are logged and never stop a removal.
func (a *app) openJournal(req resolve.Request, res *resolve.Result, assumeYes bool) *journalRun {
	jr := &journalRun{log: a.log}
	if a.cfg.Journal == "" {
		return jr
	}

	database, err := db.New(a.cfg.Journal)
	if err != nil {
		a.log.Warn().Err(err).Str("path", a.cfg.Journal).Msg("journal unavailable")
		return jr
	}

	run := &db.Run{
		Hostname:         hostname(),
		RequestedDisks:   req.Disks.Strings(),
		RequestedAliases: req.Aliases.Strings(),
		Disks:            res.Disks.Strings(),
		Aliases:          res.Aliases.Strings(),
		Blocked:          res.Blocked.Strings(),
		AssumeYes:        assumeYes,
	}
	if err := database.StartRun(run); err != nil {
		a.log.Warn().Err(err).Msg("journal run not recorded")
		database.Close()
		return jr
	}

	jr.db = database
	jr.id = run.ID
	a.log.Debug().Str("run", run.ID).Str("journal", database.Path()).Msg("journal run started")
	return jr
}

func (j *journalRun) Start(total int) {}

func (j *journalRun) Observe(r executor.ActionResult) {
	if j.db == nil {
		return
	}
	a := &db.Action{
		RunID:     j.id,
		Action:    string(r.Action),
		Device:    string(r.Device),
		OK:        r.OK(),
		Timestamp: r.Timestamp,
	}
	if r.Err != nil {
		a.Error = r.Err.Error()
	}
	if err := j.db.RecordAction(a); err != nil {
		j.log.Warn().Err(err).Msg("journal action not recorded")
	}
}

// finish stores the final status. report is nil when nothing was executed.
func (j *journalRun) finish(report *executor.Report, declined bool) {
	if j.db == nil {
		return
	}
	status := db.StatusCompleted
	switch {
	case declined:
		status = db.StatusDeclined
	case report == nil:
		status = db.StatusNothing
	case report.HasFailures():
		status = db.StatusPartial
	}
	if err := j.db.FinishRun(j.id, status); err != nil {
		j.log.Warn().Err(err).Msg("journal run not finished")
	}
}

func (j *journalRun) close() {
	if j.db != nil {
		j.db.Close()
	}
}
