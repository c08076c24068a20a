// Package domain defines the resource records exchanged with the REST backend
// and the contracts shared between the portal's packages.
//
// Records are backend-owned; the portal only renders what the last fetch
// returned. No implementation code lives here.
package domain
