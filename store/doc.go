/*
Package store provides read access to ACME DNS-01 challenge payloads. Payloads are
written, and expired, by whatever issues the certificates; this package never writes or
deletes them.

A payload for token T is held under the key "acmetxtchal:T". Redis provides the standard
implementation, but anything meeting ChallengeStore can be handed to the resolver.
*/
package store
