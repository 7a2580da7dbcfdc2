package main

// svnfilter filters a repos.Repository snapshot down to the paths matched
// by a regular expression, writing a new snapshot whose revision history
// contains only the matching subtree (plus the ancestor directories
// needed to hold it). Grounded on cmd/gitfilter's path-filtering fast-import
// pass, driving repos.Replay/delta.Editor instead of a flat git
// fast-import action list.

import (
	_ "net/http/pprof" // profiling only
	"os"
	"os/signal"
	"regexp"

	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/svncore/delta"
	"github.com/rcowham/svncore/delta/combinator"
	"github.com/rcowham/svncore/internal/version"
	"github.com/rcowham/svncore/repos"
	"github.com/rcowham/svncore/sync"
)

func main() {
	var (
		sourceFile = kingpin.Arg("source", "Source repository snapshot file.").Required().String()
		destFile   = kingpin.Arg("dest", "Destination snapshot file to write.").Required().String()
		pathFilter = kingpin.Flag("path.filter", "Regex path to keep; everything else is dropped.").Required().String()
		author     = kingpin.Flag("author", "svn:author to record on every written revision.").Default("svnfilter").String()
		maxRevs    = kingpin.Flag("max.revisions", "Max number of source revisions to process.").Short('m').Int()
		debug      = kingpin.Flag("debug", "Enable debugging level.").Short('d').Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("svnfilter")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Filters a repository snapshot down to paths matching a regex, preserving revision history.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}
	logger.Infof("%v", version.Print("svnfilter"))

	keep, err := regexp.Compile(*pathFilter)
	if err != nil {
		logger.Fatalf("invalid --path.filter: %v", err)
	}

	source, err := repos.LoadFile(*sourceFile)
	if err != nil {
		logger.Fatalf("reading source %s: %v", *sourceFile, err)
	}
	dest := repos.New()
	destSession := &sync.RepoSession{Repo: dest, Author: *author}

	cancelled := delta.NewFlag()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	go func() {
		<-sigs
		logger.Warnf("received interrupt, cancelling the revision in progress")
		cancelled.Set()
	}()

	head := source.HeadRevision()
	if *maxRevs > 0 && delta.Revision(*maxRevs) < head {
		head = delta.Revision(*maxRevs)
	}

	for rev := delta.Revision(1); rev <= head; rev++ {
		logMsg, err := source.RevPropGet(rev, "svn:log")
		if err != nil {
			logger.Fatalf("reading log message for r%d: %v", rev, err)
		}

		var committed delta.Revision
		raw, err := destSession.GetCommitEditor(logMsg, func(newRev delta.Revision) { committed = newRev })
		if err != nil {
			logger.Fatalf("opening commit editor for r%d: %v", rev, err)
		}
		stats := &FilterStats{}
		filtered := newPathFilterEditor(raw, keep, stats)
		editor := combinator.Cancel(filtered, cancelled.AsCancelFunc())

		if err := repos.Replay(source, rev, editor); err != nil {
			_ = editor.AbortEdit()
			logger.Fatalf("replaying r%d: %v", rev, err)
		}
		if err := editor.CloseEdit(); err != nil {
			_ = editor.AbortEdit()
			logger.Fatalf("closing r%d: %v", rev, err)
		}
		logger.Infof("r%d -> r%d (%d files kept, %d dropped, %d dirs forwarded)",
			rev, committed, stats.FilesKept, stats.FilesDropped, stats.DirsForwarded)

		if cancelled.IsSet() {
			logger.Warnf("stopped after r%d due to interrupt", rev)
			break
		}
	}

	if err := dest.SaveFile(*destFile); err != nil {
		logger.Fatalf("writing %s: %v", *destFile, err)
	}
	logger.Infof("wrote %s (head r%d)", *destFile, dest.HeadRevision())
}
