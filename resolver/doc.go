/*
Package resolver decides the answer to every in-class DNS question put to tlsmydns. It is
the only part of the program with protocol obligations; the servers in cmd/tlsmydns
handle the wire, EDNS, rate limiting and logging and delegate the decision to Resolve.

Within the configured Domain two shapes of name are answered, both keyed by a 51
character base-36 token label immediately below the Domain:

	_acme-challenge.{token}.{Domain}     TXT or ANY  - payload from the challenge store
	{o1}.{o2}.{o3}.{o4}.{token}.{Domain} A or ANY    - the IPv4 address o1.o2.o3.o4

plus an A query for the Domain itself, which returns the configured server address.
Names outside the Domain are REFUSED. Everything else inside the Domain is NXDOMAIN, with
the exception of non-A queries of the Domain itself which get an empty NOERROR.

A Resolver holds only immutable configuration and a store handle, so one instance is
shared by all servers without locking.
*/
package resolver
