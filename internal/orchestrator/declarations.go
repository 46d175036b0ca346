package orchestrator

import (
	"context"
	"sync"
)

// DeclarationLog keeps the declaration history in insertion order.
type DeclarationLog struct {
	mu           sync.RWMutex
	declarations []Declaration
}

func NewDeclarationLog() *DeclarationLog {
	return &DeclarationLog{}
}

func (l *DeclarationLog) Record(_ context.Context, d Declaration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.declarations = append(l.declarations, d)
}

func (l *DeclarationLog) List(_ context.Context) []Declaration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Declaration, len(l.declarations))
	copy(out, l.declarations)
	return out
}
