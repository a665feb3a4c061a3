package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.NodeCompleted("quiz")
	r.NodeCompleted("quiz")
	r.NodeCompleted("lesson")
	r.XPAwarded(80)
	r.XPAwarded(-5)
	r.QuizAttempt(true)
	r.QuizAttempt(false)
	r.RemoteError("commit")

	if got := testutil.ToFloat64(r.completions.WithLabelValues("quiz")); got != 2 {
		t.Errorf("quiz completions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.xpAwarded); got != 80 {
		t.Errorf("xp awarded = %v, want 80", got)
	}
	if got := testutil.ToFloat64(r.quizAttempts.WithLabelValues("fail")); got != 1 {
		t.Errorf("failed attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.remoteErrors.WithLabelValues("commit")); got != 1 {
		t.Errorf("remote errors = %v, want 1", got)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.NodeCompleted("quiz")
	r.XPAwarded(10)
	r.CertificateIssued("grade-threshold")
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("nil WriteTextfile: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.CertificateIssued("peer-evaluation")

	path := filepath.Join(t.TempDir(), "textfile", "skillquest.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `skillquest_certificates_issued_total{policy="peer-evaluation"} 1`) {
		t.Errorf("textfile missing certificate counter:\n%s", data)
	}
}
