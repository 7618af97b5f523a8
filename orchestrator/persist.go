package orchestrator

import (
	"os"
	"path/filepath"
	"time"

	"github.com/vijay-svsk/call-summarizer/report"
)

func mkSessionDir(outputsRoot string, at time.Time, recordID string) (string, string, error) {
	sid := "session_" + at.Format("20060102-150405") + "_" + shortID(recordID)
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

// WriteReport stores rec under <outputsRoot>/session_<timestamp>_<id>/ and
// returns the session ID and the report path.
func WriteReport(outputsRoot string, rec *report.Record, f report.Format) (sessionID, path string, err error) {
	sid, dir, err := mkSessionDir(outputsRoot, rec.CreatedAt, rec.ID)
	if err != nil {
		return "", "", err
	}
	path = filepath.Join(dir, "report."+f.Ext())
	out, err := os.Create(path)
	if err != nil {
		return "", "", err
	}
	if err := report.Encode(out, rec, f); err != nil {
		out.Close()
		return "", "", err
	}
	return sid, path, out.Close()
}
