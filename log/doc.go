/*
Package log provides global output control across the whole application. Logging comes in
four levels: Silent, Major, Minor and Debug with each level more detailed than the
previous. Levels are inclusive, so if MinorLevel is set that implies MajorLevel logging.

Once command-line parsing has completed, all output should go via this package. The
per-query log lines written by the DNS servers are not subject to levels; they are
written with Line so that concurrent servers never interleave partial lines.

The Major/Minor/Debug functions are similar to their fmt counterparts with two
differences: if the resulting string contains multiple lines each is prefixed with the
level prefix, and a trailing newline is neither needed nor duplicated.

Callers needing to capture output for tests use SetOut and Out.
*/
package log
