// registry.go
// Registry is the only shared state of the relay: which connections are open and
// which identity each of them has joined with. It is owned by the manager loop and
// never touched from any other goroutine, so it carries no lock of its own.

package main

import "github.com/samber/lo"

type binding struct {
	client   *Client
	identity string
}

type Registry struct {
	clients []*Client            // open connections, in connect order
	bound   []*binding           // joined connections, in first-join order
	byConn  map[*Client]*binding // nil value: open but not joined yet
}

func NewRegistry() *Registry {
	return &Registry{byConn: make(map[*Client]*binding)}
}

// Open records a freshly connected client. Returns false if it is already known.
func (r *Registry) Open(c *Client) bool {
	if _, ok := r.byConn[c]; ok {
		return false
	}
	r.byConn[c] = nil
	r.clients = append(r.clients, c)
	return true
}

func (r *Registry) Contains(c *Client) bool {
	_, ok := r.byConn[c]
	return ok
}

// Bind sets the identity of an open connection, replacing any previous one.
// A rebind keeps the connection's place in the roster.
func (r *Registry) Bind(c *Client, identity string) bool {
	b, ok := r.byConn[c]
	if !ok {
		return false
	}
	if b != nil {
		b.identity = identity
		return true
	}
	b = &binding{client: c, identity: identity}
	r.byConn[c] = b
	r.bound = append(r.bound, b)
	return true
}

// Unbind forgets the connection entirely. Unknown connections are a no-op.
func (r *Registry) Unbind(c *Client) bool {
	b, ok := r.byConn[c]
	if !ok {
		return false
	}
	delete(r.byConn, c)
	r.clients = lo.Without(r.clients, c)
	if b != nil {
		r.bound = lo.Without(r.bound, b)
	}
	return true
}

func (r *Registry) Identity(c *Client) (string, bool) {
	b := r.byConn[c]
	if b == nil {
		return "", false
	}
	return b.identity, true
}

// Roster is recomputed from the bindings on every call.
func (r *Registry) Roster() []string {
	return projectRoster(r.bound)
}

// Connections returns every open connection, joined or not.
func (r *Registry) Connections() []*Client {
	return append([]*Client{}, r.clients...)
}

// ConnectionsFor returns every connection currently bound to identity.
func (r *Registry) ConnectionsFor(identity string) []*Client {
	matching := lo.Filter(r.bound, func(b *binding, _ int) bool {
		return b.identity == identity
	})
	return lo.Map(matching, func(b *binding, _ int) *Client {
		return b.client
	})
}

func (r *Registry) Len() int {
	return len(r.clients)
}

// Joined counts connections that have an identity.
func (r *Registry) Joined() int {
	return len(r.bound)
}

func projectRoster(bound []*binding) []string {
	return lo.Map(bound, func(b *binding, _ int) string {
		return b.identity
	})
}
