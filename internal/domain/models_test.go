package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestJobStatusConstants(t *testing.T) {
	if JobQueued != "queued" {
		t.Fatalf("JobQueued = %q", JobQueued)
	}
	if JobDownloading != "downloading" {
		t.Fatalf("JobDownloading = %q", JobDownloading)
	}
	if JobProcessing != "processing" {
		t.Fatalf("JobProcessing = %q", JobProcessing)
	}
	if JobCompleted != "completed" {
		t.Fatalf("JobCompleted = %q", JobCompleted)
	}
	if JobCancelled != "cancelled" {
		t.Fatalf("JobCancelled = %q", JobCancelled)
	}
	if JobError != "error" {
		t.Fatalf("JobError = %q", JobError)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobQueued, JobDownloading, true},
		{JobQueued, JobError, true},
		{JobQueued, JobProcessing, false},
		{JobQueued, JobCancelled, false},
		{JobDownloading, JobProcessing, true},
		{JobDownloading, JobCancelled, true},
		{JobDownloading, JobError, true},
		{JobDownloading, JobCompleted, false},
		{JobProcessing, JobCompleted, true},
		{JobProcessing, JobError, true},
		{JobProcessing, JobCancelled, false},
		{JobCompleted, JobDownloading, false},
		{JobCancelled, JobDownloading, false},
		{JobError, JobQueued, false},
		{JobDownloading, JobDownloading, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []JobStatus{JobCompleted, JobCancelled, JobError} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false", s)
		}
	}
	for _, s := range []JobStatus{JobQueued, JobDownloading, JobProcessing} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true", s)
		}
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in   string
		want TranscodeBackend
	}{
		{"cpu", BackendCPU},
		{"intel", BackendIntel},
		{"amd", BackendAMD},
		{"nvidia", BackendNvidia},
		{"", BackendCPU},
		{"cuda", BackendCPU},
		{"NVIDIA", BackendCPU},
	}
	for _, tt := range tests {
		if got := ParseBackend(tt.in); got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidQuality(t *testing.T) {
	for _, h := range []int{480, 720, 1080} {
		if !ValidQuality(h) {
			t.Errorf("ValidQuality(%d) = false", h)
		}
	}
	for _, h := range []int{0, -1, 360, 481, 2160} {
		if ValidQuality(h) {
			t.Errorf("ValidQuality(%d) = true", h)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1, 100},
		{0.5, 50},
		{0.123, 12.3},
		{0.12345, 12.3},
		{0.99999, 100},
		{0.0004, 0},
		{0.0005, 0.1},
	}
	for _, tt := range tests {
		if got := ProgressPercent(tt.in); got != tt.want {
			t.Errorf("ProgressPercent(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJobSnapshotJSONTags(t *testing.T) {
	expectJSONTag(t, JobSnapshot{}, "ID", "id")
	expectJSONTag(t, JobSnapshot{}, "Magnet", "magnet")
	expectJSONTag(t, JobSnapshot{}, "Name", "name")
	expectJSONTag(t, JobSnapshot{}, "Status", "status")
	expectJSONTag(t, JobSnapshot{}, "Error", "error,omitempty")
	expectJSONTag(t, JobSnapshot{}, "Progress", "progress")
	expectJSONTag(t, JobSnapshot{}, "DownloadRate", "downloadRate")
	expectJSONTag(t, JobSnapshot{}, "UploadRate", "uploadRate")
	expectJSONTag(t, JobSnapshot{}, "ElapsedSeconds", "elapsedSeconds")
	expectJSONTag(t, JobSnapshot{}, "ETASeconds", "etaSeconds,omitempty")
	expectJSONTag(t, JobSnapshot{}, "CreatedAt", "createdAt")
	expectJSONTag(t, JobSnapshot{}, "StartedAt", "startedAt,omitempty")
	expectJSONTag(t, JobSnapshot{}, "CompletedAt", "completedAt,omitempty")
}

func TestLibraryEntryJSONTags(t *testing.T) {
	expectJSONTag(t, LibraryEntry{}, "Name", "name")
	expectJSONTag(t, LibraryEntry{}, "DisplayName", "displayName")
	expectJSONTag(t, LibraryEntry{}, "Year", "year,omitempty")
	expectJSONTag(t, LibraryEntry{}, "SizeBytes", "sizeBytes")
	expectJSONTag(t, LibraryEntry{}, "ContentType", "contentType")
	expectJSONTag(t, LibraryEntry{}, "ModifiedAt", "modifiedAt")
}

func TestJobSnapshotTimestampsRenderUTC(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	b, err := json.Marshal(JobSnapshot{ID: "a", Status: JobQueued, CreatedAt: created})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"createdAt":"2024-03-01T12:30:00Z"`) {
		t.Fatalf("createdAt not RFC 3339 UTC: %s", b)
	}
	if strings.Contains(string(b), "startedAt") || strings.Contains(string(b), "etaSeconds") {
		t.Fatalf("unset optional fields serialized: %s", b)
	}
}

func expectJSONTag(t *testing.T, v interface{}, fieldName, want string) {
	t.Helper()
	typ := reflect.TypeOf(v)
	field, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("missing field %s", fieldName)
	}
	if got := field.Tag.Get("json"); got != want {
		t.Fatalf("%s json tag = %q, want %q", fieldName, got, want)
	}
}
