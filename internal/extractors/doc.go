// Package extractors turns raw document bytes into page text.
//
// Each subpackage handles one family of formats. The Registry picks the
// highest-priority extractor for the content's MIME type, sniffing the
// bytes when the type is missing or generic.
package extractors
