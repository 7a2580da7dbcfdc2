package sync

import (
	"github.com/rcowham/svncore/delta"
	"github.com/rcowham/svncore/repos"
)

// RepoSession adapts an in-process *repos.Repository to the Session
// contract, for driving the sync engine against a local mirror without a
// network repository-access layer — the role a real svnsync's
// svn_ra_session_t plays against a remote server, here fulfilled
// in-memory (spec §6 leaves the session's transport unspecified).
type RepoSession struct {
	Repo   *repos.Repository
	Author string
}

func (s *RepoSession) LatestRevnum() (delta.Revision, error) {
	return s.Repo.HeadRevision(), nil
}

func (s *RepoSession) UUID() (string, error) {
	return s.Repo.UUID, nil
}

func (s *RepoSession) ReposRoot() (string, error) {
	return "file://" + s.Repo.UUID, nil
}

func (s *RepoSession) RevPropGet(rev delta.Revision, name string) (string, error) {
	return s.Repo.RevPropGet(rev, name)
}

func (s *RepoSession) RevPropList(rev delta.Revision) (map[string]string, error) {
	return s.Repo.RevPropList(rev)
}

func (s *RepoSession) RevPropChange(rev delta.Revision, name string, value *string, oldValue string) error {
	if oldValue != "" {
		current, err := s.Repo.RevPropGet(rev, name)
		if err != nil {
			return err
		}
		if current != oldValue {
			return delta.New(delta.KindConflict, "revprop %s on r%d changed concurrently", name, rev)
		}
	}
	return s.Repo.RevPropChange(rev, name, value)
}

func (s *RepoSession) HasCapability(name string) (bool, error) {
	switch name {
	case "partial-replay":
		return true, nil
	default:
		return false, nil
	}
}

func (s *RepoSession) GetCommitEditor(logMessage string, callback func(newRev delta.Revision)) (delta.Editor, error) {
	head := s.Repo.HeadRevision()
	txn, err := repos.NewTxn(s.Repo, head, s.Author, logMessage)
	if err != nil {
		return nil, err
	}
	return &committingEditor{Txn: txn, onCommit: callback}, nil
}

func (s *RepoSession) Replay(rev delta.Revision, editor delta.Editor) error {
	return repos.Replay(s.Repo, rev, editor)
}

// committingEditor calls Txn.Commit from CloseEdit, since delta.Editor's
// CloseEdit has no return value slot for the new revision number — the
// callback convention GetCommitEditor documents is how that number
// reaches the caller.
type committingEditor struct {
	*repos.Txn
	onCommit func(newRev delta.Revision)
}

func (c *committingEditor) CloseEdit() error {
	rev, err := c.Txn.Commit()
	if err != nil {
		return err
	}
	if c.onCommit != nil {
		c.onCommit(rev)
	}
	return nil
}

var _ Session = (*RepoSession)(nil)
var _ delta.Editor = (*committingEditor)(nil)
