package model

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTestKind(t *testing.T) {
	tests := []struct {
		in      string
		want    TestKind
		wantErr bool
	}{
		{"", KindNone, false},
		{"junit", KindJUnit5, false},
		{"JUnit5", KindJUnit5, false},
		{"jupiter", KindJUnit5, false},
		{"junit4", KindJUnit4, false},
		{" testng ", KindTestNG, false},
		{"spock", KindNone, true},
	}

	for _, tt := range tests {
		got, err := ParseTestKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTestKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTestKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTestLevel(t *testing.T) {
	for _, l := range Levels {
		got, err := ParseTestLevel(l.String())
		if err != nil || got != l {
			t.Errorf("ParseTestLevel(%q) = %v, %v", l.String(), got, err)
		}
	}
	if _, err := ParseTestLevel("module"); err == nil {
		t.Error("ParseTestLevel(module) expected error")
	}
}

func TestRequestJSON(t *testing.T) {
	in := `{"projectName":"junit","testLevel":6,"testKind":0,"testNames":["h"]}`
	var req Request
	if err := json.Unmarshal([]byte(in), &req); err != nil {
		t.Fatal(err)
	}
	want := Request{ProjectName: "junit", TestLevel: LevelMethod, TestKind: KindJUnit5, TestNames: []string{"h"}}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("Unmarshal mismatch (-want +got):\n%s", diff)
	}

	out, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(out); got != `{"projectName":"junit","testLevel":"method","testKind":"junit5","testNames":["h"]}` {
		t.Errorf("Marshal() = %s", got)
	}
}

func TestEnumWireCodes(t *testing.T) {
	kinds := []struct {
		code int
		want TestKind
	}{
		{0, KindJUnit5},
		{1, KindJUnit4},
		{2, KindTestNG},
		{100, KindNone},
	}
	for _, tt := range kinds {
		var k TestKind
		if err := json.Unmarshal([]byte(strconv.Itoa(tt.code)), &k); err != nil || k != tt.want {
			t.Errorf("TestKind code %d = %v, %v; want %v", tt.code, k, err, tt.want)
		}
	}

	levels := []struct {
		code int
		want TestLevel
	}{
		{3, LevelProject},
		{4, LevelPackage},
		{5, LevelClass},
		{6, LevelMethod},
	}
	for _, tt := range levels {
		var l TestLevel
		if err := json.Unmarshal([]byte(strconv.Itoa(tt.code)), &l); err != nil || l != tt.want {
			t.Errorf("TestLevel code %d = %v, %v; want %v", tt.code, l, err, tt.want)
		}
	}
}

func TestEnumJSONErrors(t *testing.T) {
	inputs := []string{
		`{"testLevel":9}`,
		`{"testLevel":1}`,
		`{"testKind":3}`,
		`{"testLevel":"galaxy"}`,
		`{"testKind":-1}`,
		`{"testKind":"spock"}`,
		`{"testKind":true}`,
	}
	for _, in := range inputs {
		var req Request
		if err := json.Unmarshal([]byte(in), &req); err == nil {
			t.Errorf("Unmarshal(%s) expected error", in)
		}
	}
}

func TestResponseOmitsNilBody(t *testing.T) {
	out, err := json.Marshal(Response{})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{}` {
		t.Errorf("Marshal(Response{}) = %s, want {}", out)
	}
}
