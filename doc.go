// This file exists so that "go doc github.com/tlsmy/tlsmydns" displays something useful.

/*
Package tlsmydns is a specialized authoritative DNS server which lets hosts without a
public DNS presence of their own obtain TLS certificates. It answers ACME DNS-01
challenges (RFC8555 section 8.4) for names of the form

	_acme-challenge.{token}.tlsmy.net

from payloads held in Redis, and answers A queries for names of the form

	{a}.{b}.{c}.{d}.{token}.tlsmy.net

with the address a.b.c.d, so a host on a private or dynamic address can have a stable,
certifiable name which resolves to wherever it happens to be.

The program is in cmd/tlsmydns and the decision logic is in the resolver package.

Project site: https://github.com/tlsmy/tlsmydns
*/
package tlsmydns
