package session

import "sync/atomic"

// PairingStore keeps the latest pairing payload. Each issuance overwrites the
// previous one; expiry is the messaging network's concern.
type PairingStore struct {
	latest atomic.Pointer[string]
}

func NewPairingStore() *PairingStore {
	return &PairingStore{}
}

func (p *PairingStore) Set(payload string) {
	p.latest.Store(&payload)
}

// Latest returns false until the first payload has been issued.
func (p *PairingStore) Latest() (string, bool) {
	v := p.latest.Load()
	if v == nil {
		return "", false
	}
	return *v, true
}
