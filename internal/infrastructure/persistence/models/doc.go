// Package models contains the GORM persistence models and their
// conversions to and from domain entities. Domain packages never import
// this package; repositories own the mapping in both directions.
package models
