/*
Package speedtracker holds the application level configuration and shared
resources for the speedtracker service, which runs WebPageTest tests for
named page profiles and stores their results.
*/
package speedtracker

// BuildRevision stores the commit in the git repository at build time and is
// specified with -ldflags at build time.
var BuildRevision = ""
