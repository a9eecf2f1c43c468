// Package repro strips non-reproducible data from build artifacts so
// that the same source produces byte-identical files on any machine.
//
// Strippers are pure transformations over bytes: [ZipStripper] rebuilds
// ZIP-family archives (jar, war, zip) with canonical entry order, fixed
// timestamps, and umask-independent attributes; [ManifestStripper]
// removes volatile headers from JAR manifests; [PropertiesStripper] and
// [TextStripper] clean up text formats; [TarStripper] does the same for
// tar archives. Strippers compose: a container stripper delegates
// matching entries to sub-strippers, including other container
// strippers for nested archives.
//
// # Quick Start
//
// Normalize a freshly built JAR in place:
//
//	s, err := repro.NewJar()
//	if err != nil {
//	    return err
//	}
//	err = s.StripFile("target/app.jar", "target/app.jar")
//
// Build a custom configuration:
//
//	s, err := repro.NewZipStripper(
//	    repro.ZipWithTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
//	    repro.ZipWithFixAttributes(true),
//	    repro.ZipWithStripper(`META-INF/MANIFEST\.MF`, repro.NewManifestStripper()),
//	)
//
// # Determinism
//
// Every stripper is deterministic: output depends only on input bytes
// and construction-time configuration, never on the clock, the
// timezone, the environment, or worker scheduling. Stripping an
// already-stripped artifact returns it unchanged.
package repro
