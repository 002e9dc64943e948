// Package model defines the shared request, response and enum types used by
// every stage of selector resolution.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TestKind identifies the test framework (and therefore the runner CLI) a
// selection is launched with.
type TestKind int

const (
	// KindNone means no kind was declared. Nothing kind-specific applies.
	KindNone TestKind = iota
	KindJUnit4
	KindJUnit5
	KindTestNG
)

// Kinds lists every declared kind, in enum order.
var Kinds = []TestKind{KindNone, KindJUnit4, KindJUnit5, KindTestNG}

func (k TestKind) String() string {
	switch k {
	case KindNone:
		return ""
	case KindJUnit4:
		return "junit4"
	case KindJUnit5:
		return "junit5"
	case KindTestNG:
		return "testng"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseTestKind maps a launch-configuration kind string to a TestKind.
// "junit" and "jupiter" name the JUnit 5 platform runner; the empty string
// is KindNone.
func ParseTestKind(s string) (TestKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return KindNone, nil
	case "junit", "junit5", "jupiter":
		return KindJUnit5, nil
	case "junit4":
		return KindJUnit4, nil
	case "testng":
		return KindTestNG, nil
	}
	return KindNone, fmt.Errorf("unknown test kind %q", s)
}

// MarshalJSON encodes the kind as its lower-case name.
func (k TestKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// kindFromWire maps the numeric kind codes sent by editor hosts
// (JUnit5=0, JUnit=1, TestNG=2, None=100).
func kindFromWire(n int) (TestKind, error) {
	switch n {
	case 0:
		return KindJUnit5, nil
	case 1:
		return KindJUnit4, nil
	case 2:
		return KindTestNG, nil
	case 100:
		return KindNone, nil
	}
	return KindNone, fmt.Errorf("unknown test kind code %d", n)
}

// UnmarshalJSON accepts either the kind name or the host's numeric code.
func (k *TestKind) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := kindFromWire(n)
		if err != nil {
			return err
		}
		*k = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("test kind must be a string or number: %w", err)
	}
	parsed, err := ParseTestKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TestLevel is the granularity of a selection.
type TestLevel int

const (
	LevelProject TestLevel = iota
	LevelPackage
	LevelClass
	LevelMethod
)

// Levels lists every level, coarsest first.
var Levels = []TestLevel{LevelProject, LevelPackage, LevelClass, LevelMethod}

func (l TestLevel) String() string {
	switch l {
	case LevelProject:
		return "project"
	case LevelPackage:
		return "package"
	case LevelClass:
		return "class"
	case LevelMethod:
		return "method"
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// ParseTestLevel parses a level name.
func ParseTestLevel(s string) (TestLevel, error) {
	for _, l := range Levels {
		if strings.EqualFold(strings.TrimSpace(s), l.String()) {
			return l, nil
		}
	}
	return LevelProject, fmt.Errorf("unknown test level %q", s)
}

// MarshalJSON encodes the level as its lower-case name.
func (l TestLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// levelFromWire maps the numeric level codes sent by editor hosts
// (Root=0, Workspace=1, WorkspaceFolder=2, Project=3, Package=4, Class=5,
// Method=6). Levels above a project have no runner selection.
func levelFromWire(n int) (TestLevel, error) {
	switch n {
	case 3:
		return LevelProject, nil
	case 4:
		return LevelPackage, nil
	case 5:
		return LevelClass, nil
	case 6:
		return LevelMethod, nil
	case 0, 1, 2:
		return LevelProject, fmt.Errorf("test level code %d is wider than a project", n)
	}
	return LevelProject, fmt.Errorf("unknown test level code %d", n)
}

// UnmarshalJSON accepts either the level name or the host's numeric code.
func (l *TestLevel) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := levelFromWire(n)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("test level must be a string or number: %w", err)
	}
	parsed, err := ParseTestLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Request asks a resolver to turn encoded handles into runner arguments.
type Request struct {
	ProjectName string    `json:"projectName"`
	TestLevel   TestLevel `json:"testLevel"`
	TestKind    TestKind  `json:"testKind"`
	TestNames   []string  `json:"testNames"`
}

// LaunchArguments is the resolved part of a runner invocation.
type LaunchArguments struct {
	ProjectName      string   `json:"projectName,omitempty"`
	MainClass        string   `json:"mainClass,omitempty"`
	ProgramArguments []string `json:"programArguments"`
}

// Response wraps resolved arguments. A nil Body means resolution failed.
type Response struct {
	Body *LaunchArguments `json:"body,omitempty"`
}
