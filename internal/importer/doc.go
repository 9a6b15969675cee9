// Package importer implements the site import crawl pipeline: platform
// detection, frontier-driven page crawling, structural fingerprinting, the
// product-feed fast path, and the staged item persistence contract.
package importer
