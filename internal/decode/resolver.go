package decode

import "strings"

// Scope is the declaration context a parameter type name is resolved in.
type Scope struct {
	Project    string
	SourceRoot string
	Package    string
	Unit       string
	// Types is the declaring type chain, outermost first.
	Types []string
	// Member is the method whose parameters are being resolved, empty at
	// class level.
	Member string
	// Qualified is the fully-qualified declaring type, nested names joined
	// by '$'. It is empty while the package itself is being resolved.
	Qualified string
}

// TypeResolver expands a simple type name to its fully-qualified runtime
// name. It reports false when it has no answer.
type TypeResolver interface {
	ResolveType(scope Scope, name string) (string, bool)
}

// PackageResolver supplies the package of a compilation unit whose handle
// carries an empty package segment.
type PackageResolver interface {
	ResolvePackage(scope Scope) (string, bool)
}

// Chain tries each resolver in order and returns the first answer.
type Chain []TypeResolver

func (c Chain) ResolveType(scope Scope, name string) (string, bool) {
	for _, r := range c {
		if fq, ok := r.ResolveType(scope, name); ok {
			return fq, true
		}
	}
	return "", false
}

func (c Chain) ResolvePackage(scope Scope) (string, bool) {
	for _, r := range c {
		pr, ok := r.(PackageResolver)
		if !ok {
			continue
		}
		if pkg, ok := pr.ResolvePackage(scope); ok {
			return pkg, true
		}
	}
	return "", false
}

// WellKnown resolves JDK types that tests commonly take as parameters.
var WellKnown TypeResolver = wellKnown{}

type wellKnown struct{}

func (wellKnown) ResolveType(_ Scope, name string) (string, bool) {
	return LookupWellKnown(name)
}

// LookupWellKnown returns the qualified name of a well-known JDK type.
func LookupWellKnown(name string) (string, bool) {
	pkg, ok := wellKnownTypes[name]
	if !ok {
		return "", false
	}
	return pkg + "." + name, true
}

// WellKnownIn reports whether name is a well-known type of package pkg.
func WellKnownIn(pkg, name string) bool {
	return wellKnownTypes[name] == pkg
}

// wellKnownPackages lists the well-known JDK types per package. A name belongs
// to exactly one package.
var wellKnownPackages = []struct {
	pkg   string
	names []string
}{
	{"java.lang", []string{
		"Object", "String", "Boolean", "Byte", "Character", "Short", "Integer", "Long",
		"Float", "Double", "Number", "Void", "Class", "Enum", "Record", "Iterable",
		"CharSequence", "Comparable", "Runnable", "Thread", "Throwable", "Exception",
		"RuntimeException", "Error", "StringBuilder", "StringBuffer", "Math",
		"AutoCloseable", "Cloneable", "System", "IllegalArgumentException",
		"IllegalStateException", "NullPointerException", "UnsupportedOperationException",
		"IndexOutOfBoundsException", "ArithmeticException", "ClassCastException",
	}},
	{"java.util", []string{
		"List", "ArrayList", "LinkedList", "Map", "HashMap", "LinkedHashMap", "TreeMap",
		"SortedMap", "NavigableMap", "Set", "HashSet", "LinkedHashSet", "TreeSet",
		"SortedSet", "NavigableSet", "Collection", "Collections", "Arrays", "Objects",
		"Optional", "OptionalInt", "OptionalLong", "OptionalDouble", "Iterator",
		"Queue", "Deque", "ArrayDeque", "PriorityQueue", "UUID", "Date", "Calendar",
		"Locale", "Properties", "Random", "Scanner", "EnumSet", "EnumMap", "BitSet",
	}},
	{"java.util.function", []string{
		"Function", "BiFunction", "Supplier", "Consumer", "BiConsumer", "Predicate",
		"BiPredicate", "UnaryOperator", "BinaryOperator", "IntFunction", "ToIntFunction",
	}},
	{"java.util.stream", []string{
		"Stream", "IntStream", "LongStream", "DoubleStream", "Collectors",
	}},
	{"java.math", []string{"BigDecimal", "BigInteger"}},
	{"java.time", []string{
		"Duration", "Instant", "LocalDate", "LocalDateTime", "LocalTime",
		"ZonedDateTime", "OffsetDateTime", "ZoneId", "Period", "Year", "YearMonth",
	}},
	{"java.io", []string{
		"File", "InputStream", "OutputStream", "Reader", "Writer", "IOException",
		"Serializable", "UncheckedIOException",
	}},
	{"java.nio.file", []string{"Path", "Paths", "Files"}},
}

var wellKnownTypes = func() map[string]string {
	m := make(map[string]string)
	for _, p := range wellKnownPackages {
		for _, n := range p.names {
			if _, dup := m[n]; !dup {
				m[n] = p.pkg
			}
		}
	}
	return m
}()

// isPackageQualified reports whether a dotted reference name already starts
// with a package (by Java naming convention, a lower-case first segment).
func isPackageQualified(name string) bool {
	if !strings.Contains(name, ".") {
		return false
	}
	c := name[0]
	return c >= 'a' && c <= 'z'
}
