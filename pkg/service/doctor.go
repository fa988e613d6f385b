package service

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/thomas6785/protomanage/pkg/query"
	"github.com/thomas6785/protomanage/pkg/session"
)

// DoctorReport describes the health of a repository's state folder:
// leftovers from killed processes and items that fail to parse.
type DoctorReport struct {
	// OrphanedLocks are lock files whose owning process is gone.
	OrphanedLocks []OrphanedLock

	// HeldLocks are lock files whose owner still appears to be running.
	HeldLocks []OrphanedLock

	// StrandedBackups are pre-edit snapshots left behind by sessions that
	// never reached commit or abort.
	StrandedBackups []string

	// Salvaged lists recovery artifacts produced from stranded backups when
	// the doctor ran with fix enabled.
	Salvaged []string

	// RecoveryArtifacts are preserved snapshots awaiting manual inspection.
	RecoveryArtifacts []string

	// CorruptItems are item files that failed to parse.
	CorruptItems []string
}

// OrphanedLock is one lock file found during the sweep.
type OrphanedLock struct {
	ID     string
	Path   string
	Holder *session.LockInfo
}

// Healthy reports whether nothing needs attention.
func (r *DoctorReport) Healthy() bool {
	return len(r.OrphanedLocks) == 0 && len(r.HeldLocks) == 0 &&
		len(r.StrandedBackups) == 0 && len(r.RecoveryArtifacts) == 0 &&
		len(r.CorruptItems) == 0
}

// Doctor sweeps the repository state folder for traces of interrupted
// sessions. With fix enabled, locks from dead processes are removed and
// stranded backups are preserved as recovery artifacts so the items they
// snapshot stay restorable.
func (s *Service) Doctor(fix bool) (*DoctorReport, error) {
	report := &DoctorReport{}

	// Locks.
	lockEntries, err := os.ReadDir(s.Repo.LocksDir())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range lockEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}
		path := filepath.Join(s.Repo.LocksDir(), entry.Name())
		id := strings.TrimSuffix(entry.Name(), ".lock")
		holder, _ := session.ReadLock(path)

		ol := OrphanedLock{ID: id, Path: path, Holder: holder}
		if holder != nil && processAlive(holder.PID) {
			report.HeldLocks = append(report.HeldLocks, ol)
			continue
		}
		report.OrphanedLocks = append(report.OrphanedLocks, ol)
		if fix {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				s.log.WithError(err).WithField("lock", path).Warn("could not remove orphaned lock")
			}
		}
	}

	// Backups stranded by crashed sessions.
	backupEntries, err := os.ReadDir(s.Repo.BackupsDir())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range backupEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.Repo.BackupsDir(), entry.Name())
		id := strings.TrimSuffix(entry.Name(), ".json")

		// A backup belonging to a live session is not stranded.
		if s.lockHeldByLiveProcess(id) {
			continue
		}
		report.StrandedBackups = append(report.StrandedBackups, path)
		if fix {
			artifact, err := session.Salvage(s.Repo, id, path)
			if err != nil {
				s.log.WithError(err).WithField("backup", path).Warn("could not salvage stranded backup")
				continue
			}
			report.Salvaged = append(report.Salvaged, artifact)
		}
	}

	// Recovery artifacts waiting for the user.
	recoveryEntries, err := os.ReadDir(s.Repo.RecoveryDir())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range recoveryEntries {
		if !entry.IsDir() {
			report.RecoveryArtifacts = append(report.RecoveryArtifacts,
				filepath.Join(s.Repo.RecoveryDir(), entry.Name()))
		}
	}

	// Corrupt items.
	_, queryReport, err := query.Run(s.Repo, query.Query{})
	if err != nil {
		return nil, err
	}
	for _, skipped := range queryReport.Skipped {
		report.CorruptItems = append(report.CorruptItems, skipped.Error())
	}

	return report, nil
}

func (s *Service) lockHeldByLiveProcess(id string) bool {
	holder, err := session.ReadLock(session.LockPath(s.Repo, id))
	if err != nil {
		return false
	}
	return processAlive(holder.PID)
}

// processAlive probes a pid with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
