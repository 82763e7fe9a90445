// Package quorumtest provides helpers shared by tests of other packages.
package quorumtest
