// Package model defines stable boundary types shared by the resolver, the
// session client and the API layers.
//
// Manifest and ProofRecord mirror the JSON documents owned by the content
// network and the proof backend; this module never mutates them.
package model
