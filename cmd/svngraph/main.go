package main

// svngraph reads a repos.Repository snapshot and writes a graphviz DOT
// file showing its revision history: one node per revision, a linear edge
// from each revision to the next, and a dashed "copy" edge wherever a
// directory's full manifest (path+checksum set) exactly matches one that
// already existed at an earlier revision — the content-signature
// heuristic repos.Manifest exists for, since the committed tree carries
// no copyfrom provenance of its own. Grounded on cmd/gitgraph's
// commit-to-DOT pass, built against repos revisions instead of git
// commits.

import (
	"fmt"
	_ "net/http/pprof" // profiling only
	"os"
	"strings"

	"github.com/emicklei/dot"
	"github.com/goccy/go-graphviz"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/svncore/delta"
	"github.com/rcowham/svncore/internal/version"
	"github.com/rcowham/svncore/repos"
)

func logSummary(msg string) string {
	msg = strings.TrimSpace(msg)
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	const maxLen = 50
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}
	return msg
}

func manifestKey(entries []repos.FileEntry) string {
	sorted := make([]string, len(entries))
	for i, e := range entries {
		sorted[i] = e.Path + "@" + e.Checksum
	}
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return strings.Join(sorted, "\n")
}

// findCopySource reports the first directory in candidates whose manifest
// key at rev exactly matches newDirKey, or "" if none matches. An empty
// key (an empty directory) never counts as a copy source.
func findCopySource(repo *repos.Repository, rev delta.Revision, candidates []string, newDirKey string) (string, error) {
	if newDirKey == "" {
		return "", nil
	}
	for _, c := range candidates {
		m, err := repo.Manifest(rev, c)
		if err != nil {
			return "", err
		}
		if manifestKey(m) == newDirKey {
			return c, nil
		}
	}
	return "", nil
}

func main() {
	var (
		snapshotFile = kingpin.Arg("snapshot", "Repository snapshot file to read.").Required().String()
		outputDot    = kingpin.Flag("output", "Graphviz DOT file to write.").Short('o').Required().String()
		outputPNG    = kingpin.Flag("render", "Also render the graph to this PNG file.").String()
		firstRev     = kingpin.Flag("first.rev", "First revision to include (default: 1).").Default("0").Int()
		lastRev      = kingpin.Flag("last.rev", "Last revision to include (default: head).").Default("0").Int()
		detectCopies = kingpin.Flag("detect.copies", "Detect directory copies by content signature.").Default("true").Bool()
		debug        = kingpin.Flag("debug", "Enable debugging level.").Short('d').Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("svngraph")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Renders a repository snapshot's revision history as a graphviz DOT file.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}
	logger.Infof("%v", version.Print("svngraph"))

	repo, err := repos.LoadFile(*snapshotFile)
	if err != nil {
		logger.Fatalf("reading %s: %v", *snapshotFile, err)
	}

	lo := delta.Revision(1)
	if *firstRev > 0 {
		lo = delta.Revision(*firstRev)
	}
	hi := repo.HeadRevision()
	if *lastRev > 0 && delta.Revision(*lastRev) < hi {
		hi = delta.Revision(*lastRev)
	}

	graph := dot.NewGraph(dot.Directed)
	nodes := make(map[delta.Revision]dot.Node)

	for rev := lo; rev <= hi; rev++ {
		var copies []string
		if *detectCopies && rev > 0 {
			newDirs, err := repo.AllDirs(rev)
			if err != nil {
				logger.Fatalf("listing directories at r%d: %v", rev, err)
			}
			oldDirs, err := repo.AllDirs(rev - 1)
			if err != nil {
				logger.Fatalf("listing directories at r%d: %v", rev-1, err)
			}
			existed := make(map[string]bool, len(oldDirs))
			for _, d := range oldDirs {
				existed[d] = true
			}
			for _, d := range newDirs {
				if existed[d] {
					continue
				}
				m, err := repo.Manifest(rev, d)
				if err != nil {
					logger.Fatalf("reading manifest for %s@%d: %v", d, rev, err)
				}
				src, err := findCopySource(repo, rev-1, oldDirs, manifestKey(m))
				if err != nil {
					logger.Fatalf("searching copy source for %s@%d: %v", d, rev, err)
				}
				if src == "" {
					continue
				}
				copies = append(copies, fmt.Sprintf("copy: %s -> %s", src, d))
				logger.Infof("r%d: detected copy %s -> %s", rev, src, d)
			}
		}

		author, _ := repo.RevPropGet(rev, "svn:author")
		logMsg, _ := repo.RevPropGet(rev, "svn:log")
		label := fmt.Sprintf("r%d\n%s\n%s", rev, author, logSummary(logMsg))
		for _, c := range copies {
			label += "\n" + c
		}
		n := graph.Node(label)
		nodes[rev] = n

		if prev, ok := nodes[rev-1]; ok {
			edge := graph.Edge(prev, n, "")
			if len(copies) > 0 {
				edge.Attr("style", "dashed")
			}
		}
	}

	dotSource := graph.String()
	if err := os.WriteFile(*outputDot, []byte(dotSource), 0644); err != nil {
		logger.Fatalf("writing %s: %v", *outputDot, err)
	}
	logger.Infof("wrote %s (%d revisions)", *outputDot, hi-lo+1)

	if *outputPNG == "" {
		return
	}
	gv := graphviz.New()
	defer gv.Close()
	parsed, err := graphviz.ParseBytes([]byte(dotSource))
	if err != nil {
		logger.Errorf("parsing generated DOT for rendering: %v", err)
		return
	}
	defer parsed.Close()
	if err := gv.RenderFilename(parsed, graphviz.PNG, *outputPNG); err != nil {
		logger.Errorf("rendering %s: %v", *outputPNG, err)
		return
	}
	logger.Infof("wrote %s", *outputPNG)
}
