// Package launch assembles the program arguments of a test runner process:
// runner flags first, then tag filters, then the selection section whose
// descriptors are always the final entries.
package launch

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/abramin/launchargs/internal/decode"
	"github.com/abramin/launchargs/internal/model"
)

// Runner main classes.
const (
	JUnitMainClass  = "org.eclipse.jdt.internal.junit.runner.RemoteTestRunner"
	TestNGMainClass = "com.microsoft.java.test.runner.Launcher"
)

var (
	// ErrUnsupportedLevel indicates a level with no selection syntax.
	ErrUnsupportedLevel = decode.ErrUnsupportedLevel

	// ErrUnsupportedKind indicates a request without a runner kind.
	ErrUnsupportedKind = errors.New("unsupported test kind")
)

// RunnerOptions are the configurable parts of the runner flags.
type RunnerOptions struct {
	// Port is the result reporting port; zero omits the flag.
	Port      int
	ExtraArgs []string
}

// MainClass returns the runner entry point for kind.
func MainClass(kind model.TestKind) (string, error) {
	switch kind {
	case model.KindJUnit4, model.KindJUnit5:
		return JUnitMainClass, nil
	case model.KindTestNG:
		return TestNGMainClass, nil
	case model.KindNone:
		return "", fmt.Errorf("%w: no kind set", ErrUnsupportedKind)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
}

// RunnerFlags returns the leading runner flags for kind.
func RunnerFlags(kind model.TestKind, opts RunnerOptions) ([]string, error) {
	var args []string
	switch kind {
	case model.KindJUnit4:
		args = junitFlags(opts.Port, "org.eclipse.jdt.internal.junit4.runner.JUnit4TestLoader", "org.eclipse.jdt.junit4.runtime")
	case model.KindJUnit5:
		args = junitFlags(opts.Port, "org.eclipse.jdt.internal.junit5.runner.JUnit5TestLoader", "org.eclipse.jdt.junit5.runtime")
	case model.KindTestNG:
		if opts.Port > 0 {
			args = append(args, strconv.Itoa(opts.Port))
		}
		args = append(args, "testng")
	case model.KindNone:
		return nil, fmt.Errorf("%w: no kind set", ErrUnsupportedKind)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	return append(args, opts.ExtraArgs...), nil
}

func junitFlags(port int, loader, plugin string) []string {
	args := []string{"-version", "3"}
	if port > 0 {
		args = append(args, "-port", strconv.Itoa(port))
	}
	return append(args, "-testLoaderClass", loader, "-loaderpluginname", plugin)
}

// SelectionFlag returns the flag that introduces descriptors for kind and
// level. TestNG takes bare descriptors, so its flag is empty.
func SelectionFlag(kind model.TestKind, level model.TestLevel) (string, error) {
	switch level {
	case model.LevelPackage, model.LevelClass, model.LevelMethod:
	case model.LevelProject:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLevel, level)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLevel, level)
	}

	switch kind {
	case model.KindJUnit4, model.KindJUnit5:
		switch level {
		case model.LevelPackage:
			return "-packageNames", nil
		case model.LevelClass:
			return "-classNames", nil
		default:
			return "-test", nil
		}
	case model.KindTestNG:
		return "", nil
	case model.KindNone:
		return "", fmt.Errorf("%w: no kind set", ErrUnsupportedKind)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
}

// Selection is the trailing section of an argument list.
type Selection struct {
	Kind        model.TestKind
	Level       model.TestLevel
	Descriptors []string
}

// Args renders the selection section.
func (s Selection) Args() ([]string, error) {
	flag, err := SelectionFlag(s.Kind, s.Level)
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, len(s.Descriptors)+1)
	if flag != "" {
		args = append(args, flag)
	}
	return append(args, s.Descriptors...), nil
}

// Assemble concatenates runner flags, tag args and the selection section.
// Descriptors keep their input order and are never deduplicated.
func Assemble(runnerFlags, tagArgs []string, sel Selection) ([]string, error) {
	section, err := sel.Args()
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, len(runnerFlags)+len(tagArgs)+len(section))
	args = append(args, runnerFlags...)
	args = append(args, tagArgs...)
	return append(args, section...), nil
}

// SpliceFilters inserts tagArgs before the last width entries of args, the
// selection section of an already assembled list. args is not modified.
func SpliceFilters(args, tagArgs []string, width int) []string {
	if len(tagArgs) == 0 {
		return args
	}
	at := len(args) - width
	if at < 0 {
		at = 0
	}
	if at > len(args) {
		at = len(args)
	}
	out := make([]string, 0, len(args)+len(tagArgs))
	out = append(out, args[:at]...)
	out = append(out, tagArgs...)
	return append(out, args[at:]...)
}

// SelectionWidth is the number of trailing entries the selection section
// occupies for n descriptors.
func SelectionWidth(kind model.TestKind, level model.TestLevel, n int) int {
	flag, err := SelectionFlag(kind, level)
	if err != nil || flag == "" {
		return n
	}
	return n + 1
}
