// Package textutil provides filename sanitizing and display helpers.
//
// Output names are built from embedded tags that may contain any Unicode, so
// names are normalized to NFC and stripped of characters that are unsafe on
// common filesystems before they reach disk.
package textutil
