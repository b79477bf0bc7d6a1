// Package dot holds version information for the eo build-and-run helper.
package dot

// Version is the eo release version.
const Version = "0.3.0"
