// Package models contains the gorm persistence models. Domain entities stay
// free of ORM tags; repositories convert between the two.
package models
