// Package description turns an episode transcript into prose describing the
// show and episode, the raw material the vetting and pitch stages work from.
package description
