package model

import "testing"

func TestParseStageKind(t *testing.T) {
	cases := []struct {
		in   string
		want StageKind
	}{
		{"CollectionEvent", StageCollection},
		{"QualityTest", StageQualityTest},
		{"ProcessingStep", StageProcessing},
	}
	for _, tc := range cases {
		got, err := ParseStageKind(tc.in)
		if err != nil {
			t.Fatalf("ParseStageKind(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseStageKind(%q) = %d, want %d", tc.in, got, tc.want)
		}
		if got.String() != tc.in {
			t.Fatalf("round trip: %q != %q", got.String(), tc.in)
		}
	}
}

func TestParseStageKind_Unknown(t *testing.T) {
	for _, in := range []string{"", "collectionevent", "Harvest", "3"} {
		if _, err := ParseStageKind(in); err == nil {
			t.Fatalf("ParseStageKind(%q) should fail", in)
		}
	}
}

func TestStageKindValid(t *testing.T) {
	if !StageCollection.Valid() || !StageQualityTest.Valid() || !StageProcessing.Valid() {
		t.Fatal("enumeration members should be valid")
	}
	if StageKind(3).Valid() || StageKind(-1).Valid() {
		t.Fatal("out-of-range kinds should be invalid")
	}
}

func TestSummarizeVerification(t *testing.T) {
	v := VerifiedStage{Verified: true}
	u := VerifiedStage{Verified: false}

	cases := []struct {
		name   string
		stages []VerifiedStage
		want   VerificationStatus
	}{
		{"empty", nil, StatusNotVerified},
		{"none verified", []VerifiedStage{u, u}, StatusNotVerified},
		{"some verified", []VerifiedStage{v, u}, StatusPartiallyVerified},
		{"all verified", []VerifiedStage{v, v, v}, StatusFullyVerified},
	}
	for _, tc := range cases {
		if got := SummarizeVerification(tc.stages); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}
