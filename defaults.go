package repro

// Entry patterns handled by the default Java archive configuration.
const (
	manifestPattern      = `META-INF/MANIFEST\.MF`
	pomPropertiesPattern = `META-INF/maven/\S*/pom\.properties`
	nestedArchivePattern = `.*\.(jar|war|zip)`
)

// NewJar creates a ZipStripper configured for Java archives: the
// manifest is normalized, Maven pom.properties comments are removed,
// nested archives are stripped recursively, and external attributes are
// fixed. Options are applied on top; sub-strippers they register are
// consulted after the defaults, except that nested-archive recursion
// always comes last.
func NewJar(opts ...ZipOption) (*ZipStripper, error) {
	base := []ZipOption{
		ZipWithFixAttributes(true),
		ZipWithStripper(manifestPattern, NewManifestStripper()),
		ZipWithStripper(pomPropertiesPattern, NewPropertiesStripper()),
	}
	s, err := NewZipStripper(append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	// The stripper handles its own nested archives. Recursion
	// terminates because nested content is strictly smaller than its
	// container.
	nested, err := compileFullMatch(nestedArchivePattern)
	if err != nil {
		return nil, err
	}
	s.subs = append(s.subs, entryStripper{pattern: nested, strip: s})
	return s, nil
}
