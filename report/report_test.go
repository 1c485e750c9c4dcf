package report

import (
	"math"
	"strings"
	"testing"

	"github.com/exameye/proctor/models"
)

func v(studentID, studentName, violationType string) models.Violation {
	return models.Violation{
		StudentID:     studentID,
		StudentName:   studentName,
		ViolationType: violationType,
	}
}

func TestCountByType(t *testing.T) {
	violations := []models.Violation{
		v("s1", "A", "looking_away"),
		v("s1", "A", "looking_away"),
		v("s2", "B", "multiple_faces"),
		v("s2", "B", ""),
	}

	counts := CountByType(violations)
	if counts["looking_away"] != 2 {
		t.Errorf("looking_away = %d, want 2", counts["looking_away"])
	}
	if counts["multiple_faces"] != 1 {
		t.Errorf("multiple_faces = %d, want 1", counts["multiple_faces"])
	}
	if counts["unknown"] != 1 {
		t.Errorf("unknown = %d, want 1 (empty types bucketed)", counts["unknown"])
	}
}

func TestRankStudentsDescending(t *testing.T) {
	violations := []models.Violation{
		v("s1", "Alice", "looking_away"),
		v("s2", "Bob", "looking_away"),
		v("s2", "Bob", "multiple_faces"),
		v("s2", "Bob", "phone_detected"),
		v("s3", "Carol", "looking_away"),
		v("s3", "Carol", "looking_away"),
	}

	ranked := RankStudents(violations)
	if len(ranked) != 3 {
		t.Fatalf("ranked %d students, want 3", len(ranked))
	}
	if ranked[0].StudentID != "s2" || ranked[0].Count != 3 {
		t.Errorf("rank 1 = %+v, want s2 with 3", ranked[0])
	}
	if ranked[1].StudentID != "s3" || ranked[1].Count != 2 {
		t.Errorf("rank 2 = %+v, want s3 with 2", ranked[1])
	}
	if ranked[2].StudentID != "s1" {
		t.Errorf("rank 3 = %+v, want s1", ranked[2])
	}
}

func TestRankStudentsStableTies(t *testing.T) {
	violations := []models.Violation{
		v("s1", "Alice", "looking_away"),
		v("s2", "Bob", "looking_away"),
		v("s3", "Carol", "looking_away"),
	}

	ranked := RankStudents(violations)
	// Equal counts keep first-violation order.
	want := []string{"s1", "s2", "s3"}
	for i, id := range want {
		if ranked[i].StudentID != id {
			t.Errorf("rank %d = %s, want %s", i+1, ranked[i].StudentID, id)
		}
	}
}

func TestTypeBreakdown(t *testing.T) {
	violations := []models.Violation{
		v("s1", "A", "looking_away"),
		v("s1", "A", "looking_away"),
		v("s1", "A", "looking_away"),
		v("s2", "B", "multiple_faces"),
	}

	shares := TypeBreakdown(violations)
	if len(shares) != 2 {
		t.Fatalf("got %d shares, want 2", len(shares))
	}
	if shares[0].Type != "looking_away" || shares[0].Count != 3 {
		t.Errorf("top share = %+v, want looking_away with 3", shares[0])
	}
	if math.Abs(shares[0].Percent-75) > 1e-9 {
		t.Errorf("looking_away percent = %v, want 75", shares[0].Percent)
	}

	var total float64
	for _, share := range shares {
		total += share.Percent
	}
	if math.Abs(total-100) > 1e-9 {
		t.Errorf("percentages sum to %v, want 100", total)
	}
}

func TestTypeBreakdownEmpty(t *testing.T) {
	if shares := TypeBreakdown(nil); shares != nil {
		t.Errorf("TypeBreakdown(nil) = %v, want nil", shares)
	}
}

func TestTypeBreakdownTieOrder(t *testing.T) {
	violations := []models.Violation{
		v("s1", "A", "phone_detected"),
		v("s1", "A", "looking_away"),
	}

	shares := TypeBreakdown(violations)
	// Equal counts break alphabetically.
	if shares[0].Type != "looking_away" || shares[1].Type != "phone_detected" {
		t.Errorf("tie order = %s, %s", shares[0].Type, shares[1].Type)
	}
}

func TestViolationsCSVEmpty(t *testing.T) {
	if got := ViolationsCSV(nil); got != "" {
		t.Errorf("ViolationsCSV(nil) = %q, want empty", got)
	}
}

func TestViolationsCSVRows(t *testing.T) {
	out := ViolationsCSV([]models.Violation{
		v("STU-ABC123", "Jane Doe", "looking_away"),
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header plus one row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Violation ID,") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "STU-ABC123") || !strings.Contains(lines[1], "looking_away") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestSummaryCSVSections(t *testing.T) {
	out := SummaryCSV(
		[]models.ExamSession{{ID: "sess-1"}},
		[]models.Violation{v("s1", "Alice", "looking_away")},
		[]models.Student{{StudentID: "s1"}},
	)

	for _, section := range []string{
		"OVERALL STATISTICS", "VIOLATION BREAKDOWN", "STUDENT-WISE SUMMARY",
	} {
		if !strings.Contains(out, section) {
			t.Errorf("summary missing %q section", section)
		}
	}
	if !strings.Contains(out, "Total Violations,1") {
		t.Error("summary missing the violation total")
	}
	if !strings.Contains(out, "looking_away,1") {
		t.Error("summary missing the breakdown row")
	}
}

func TestStudentHTMLPercentages(t *testing.T) {
	out, err := StudentHTML("s1", "Alice", []models.Violation{
		v("s1", "Alice", "looking_away"),
		v("s1", "Alice", "looking_away"),
		v("s1", "Alice", "multiple_faces"),
	})
	if err != nil {
		t.Fatalf("StudentHTML: %v", err)
	}

	if !strings.Contains(out, "66.7%") {
		t.Error("report missing 66.7% share for looking_away")
	}
	if !strings.Contains(out, "33.3%") {
		t.Error("report missing 33.3% share for multiple_faces")
	}
	if !strings.Contains(out, "Looking Away") {
		t.Error("report missing display name for looking_away")
	}
}

func TestStudentHTMLNoViolations(t *testing.T) {
	out, err := StudentHTML("s1", "Alice", nil)
	if err != nil {
		t.Fatalf("StudentHTML: %v", err)
	}
	if strings.Contains(out, "Percentage") {
		t.Error("percentage column rendered with no violations")
	}
	if !strings.Contains(out, "Alice") {
		t.Error("report missing the student name")
	}
}

func TestStudentHTMLEvidence(t *testing.T) {
	hosted := v("s1", "Alice", "phone_detected")
	hosted.SnapshotURL = "https://cdn.example.com/a.jpg"
	hosted.SnapshotBase64 = "aW1hZ2U="
	inline := v("s1", "Alice", "looking_away")
	inline.SnapshotBase64 = "aW1hZ2U="
	bare := v("s1", "Alice", "multiple_faces")

	out, err := StudentHTML("s1", "Alice", []models.Violation{hosted, inline, bare})
	if err != nil {
		t.Fatalf("StudentHTML: %v", err)
	}

	// Hosted URL wins over the inline copy.
	if !strings.Contains(out, `src="https://cdn.example.com/a.jpg"`) {
		t.Error("hosted snapshot URL not rendered")
	}
	if !strings.Contains(out, `src="data:image/jpeg;base64,aW1hZ2U="`) {
		t.Error("inline snapshot not rendered as a data URI")
	}
	if strings.Contains(out, "ZgotmplZ") {
		t.Error("template rejected an image source")
	}
	if !strings.Contains(out, ">2</div><div class=\"stat-label\">Evidence Photos") {
		t.Error("evidence count should be 2")
	}
}

func TestSummaryHTML(t *testing.T) {
	out, err := SummaryHTML(
		[]models.ExamSession{{ID: "sess-1"}, {ID: "sess-2"}},
		[]models.Violation{v("s1", "Alice", "looking_away")},
		[]models.Student{{StudentID: "s1"}},
	)
	if err != nil {
		t.Fatalf("SummaryHTML: %v", err)
	}
	if !strings.Contains(out, "Exam Proctoring Summary Report") {
		t.Error("report missing title")
	}
	if !strings.Contains(out, "Looking Away") {
		t.Error("report missing breakdown row")
	}
	if !strings.Contains(out, "Alice") {
		t.Error("report missing student ranking row")
	}
}

func TestPrettyType(t *testing.T) {
	cases := map[string]string{
		"looking_away":   "Looking Away",
		"multiple_faces": "Multiple Faces",
		"phone":          "Phone",
		"":               "Unknown",
		// detector types are an open set; multi-byte leads must survive
		"écran_partagé": "Écran Partagé",
	}
	for in, want := range cases {
		if got := prettyType(in); got != want {
			t.Errorf("prettyType(%q) = %q, want %q", in, got, want)
		}
	}
}
