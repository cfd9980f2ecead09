// Package services implements the business logic layer between the HTTP
// transport and the coordinator. Services validate request shape, translate
// transport types into domain types, and keep handlers free of business
// rules.
package services
