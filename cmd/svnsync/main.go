package main

// svnsync mirrors one svncore repository into another, replaying every
// unsynced source revision through the sync-filter editor (spec §4.8).
// Source and destination are each a single file holding a gob-encoded
// repos.Snapshot, in place of a networked repository-access session.

import (
	"fmt"
	_ "net/http/pprof" // profiling only
	"os"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/svncore/delta"
	"github.com/rcowham/svncore/internal/version"
	"github.com/rcowham/svncore/repos"
	"github.com/rcowham/svncore/sync"
)

var (
	revisionsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "svnsync_revisions_synced_total",
		Help: "Number of source revisions successfully replicated to the destination.",
	})
	propsNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "svnsync_properties_normalized_total",
		Help: "Number of svn:* property values CR/CRLF-normalized during sync.",
	})
)

func openOrCreate(path string) (*repos.Repository, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return repos.New(), nil
	}
	return repos.LoadFile(path)
}

func buildEngine(logger *logrus.Logger, sourceFile, destFile string) (*repos.Repository, *repos.Repository, *sync.Engine, error) {
	source, err := repos.LoadFile(sourceFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading source %s: %w", sourceFile, err)
	}
	dest, err := openOrCreate(destFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading destination %s: %w", destFile, err)
	}
	e := &sync.Engine{
		Source: &sync.RepoSession{Repo: source, Author: "svnsync"},
		Dest:   &sync.RepoSession{Repo: dest, Author: "svnsync"},
		OnRevision: func(rev delta.Revision, stats sync.FilterStats) {
			revisionsSynced.Inc()
			propsNormalized.Add(float64(stats.PropsNormalized))
			logger.Infof("synced r%d (%d properties normalized, %d dropped)", rev, stats.PropsNormalized, stats.PropsDropped)
		},
	}
	return source, dest, e, nil
}

func main() {
	app := kingpin.New("svnsync", "Mirrors one svncore repository into another by replaying its committed revisions.")
	app.Version(version.Print("svnsync")).Author("Robert Cowham")
	app.HelpFlag.Short('h')

	var (
		debug      = app.Flag("debug", "Enable debugging level.").Short('d').Bool()
		metricsGW  = app.Flag("metrics.pushgateway", "Prometheus pushgateway URL to push metrics to after each run.").String()
		natsURL    = app.Flag("nats.url", "NATS server URL to publish a per-revision progress event to.").String()
		natsSubj   = app.Flag("nats.subject", "NATS subject for progress events.").Default("svnsync.progress").String()
		continuous = app.Flag("continuous", "Re-run sync on a fixed interval instead of once.").Bool()
		interval   = app.Flag("interval", "Interval between sync runs when --continuous is set.").Default("1m").Duration()
		profileMode = app.Flag("profile.mode", "Enable profiling: cpu, mem, or none.").Default("none").Enum("none", "cpu", "mem")
	)

	initCmd := app.Command("init", "Initialize a destination for sync from a source.")
	initSource := initCmd.Arg("source", "Source repository snapshot file.").Required().String()
	initDest := initCmd.Arg("dest", "Destination repository snapshot file (created if absent).").Required().String()

	syncCmd := app.Command("sync", "Replicate every unsynced source revision to the destination.")
	syncSource := syncCmd.Arg("source", "Source repository snapshot file.").Required().String()
	syncDest := syncCmd.Arg("dest", "Destination repository snapshot file.").Required().String()

	copyCmd := app.Command("copy-revprops", "Re-copy revision properties for a range of already-synced revisions.")
	copySource := copyCmd.Arg("source", "Source repository snapshot file.").Required().String()
	copyDest := copyCmd.Arg("dest", "Destination repository snapshot file.").Required().String()
	copyLo := copyCmd.Flag("from", "First revision (default: 1).").Default("-1").Int64()
	copyHi := copyCmd.Flag("to", "Last revision (default: last-merged-rev).").Default("-1").Int64()

	infoCmd := app.Command("info", "Print the destination's sync bookkeeping.")
	infoDest := infoCmd.Arg("dest", "Destination repository snapshot file.").Required().String()

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}
	logger.Infof("%v", version.Print("svnsync"))

	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile).Stop()
	}

	var natsConn *natsPublisher
	if *natsURL != "" {
		p, err := newNATSPublisher(*natsURL, *natsSubj)
		if err != nil {
			logger.Errorf("nats connect failed, continuing without progress events: %v", err)
		} else {
			natsConn = p
			defer natsConn.Close()
		}
	}

	switch cmd {
	case initCmd.FullCommand():
		source, dest, e, err := buildEngine(logger, *initSource, *initDest)
		failOn(logger, err)
		failOn(logger, e.Init())
		failOn(logger, dest.SaveFile(*initDest))
		logger.Infof("initialized %s for sync from %s (uuid %s)", *initDest, *initSource, source.UUID)

	case syncCmd.FullCommand():
		runSync := func() {
			_, dest, e, err := buildEngine(logger, *syncSource, *syncDest)
			failOn(logger, err)
			if natsConn != nil {
				orig := e.OnRevision
				e.OnRevision = func(rev delta.Revision, stats sync.FilterStats) {
					orig(rev, stats)
					natsConn.Publish(rev)
				}
			}
			if err := e.Sync(); err != nil {
				logger.Errorf("sync failed: %v", err)
				return
			}
			failOn(logger, dest.SaveFile(*syncDest))
			if *metricsGW != "" {
				if err := push.New(*metricsGW, "svnsync").Collector(revisionsSynced).Collector(propsNormalized).Push(); err != nil {
					logger.Warnf("pushgateway push failed: %v", err)
				}
			}
		}
		if !*continuous {
			runSync()
			break
		}
		scheduler, err := gocron.NewScheduler()
		failOn(logger, err)
		_, err = scheduler.NewJob(gocron.DurationJob(*interval), gocron.NewTask(runSync))
		failOn(logger, err)
		scheduler.Start()
		logger.Infof("running continuous sync every %s; ctrl-c to stop", *interval)
		select {}

	case copyCmd.FullCommand():
		_, dest, e, err := buildEngine(logger, *copySource, *copyDest)
		failOn(logger, err)
		lo, hi := delta.Revision(*copyLo), delta.Revision(*copyHi)
		if *copyLo < 0 {
			lo = delta.InvalidRevision
		}
		if *copyHi < 0 {
			hi = delta.InvalidRevision
		}
		failOn(logger, e.CopyRevprops(lo, hi))
		failOn(logger, dest.SaveFile(*copyDest))

	case infoCmd.FullCommand():
		dest, err := repos.LoadFile(*infoDest)
		failOn(logger, err)
		e := &sync.Engine{Dest: &sync.RepoSession{Repo: dest}}
		bk, err := e.Info()
		failOn(logger, err)
		fmt.Printf("from-url: %s\n", bk.FromURL)
		fmt.Printf("from-uuid: %s\n", bk.FromUUID)
		fmt.Printf("last-merged-rev: %d\n", bk.LastMergedRev)
		if bk.CurrentlyCopying != delta.InvalidRevision {
			fmt.Printf("currently-copying: %d\n", bk.CurrentlyCopying)
		}
	}
}

func failOn(logger *logrus.Logger, err error) {
	if err != nil {
		logger.Fatalf("%v", err)
	}
}
