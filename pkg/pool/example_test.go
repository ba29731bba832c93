package pool_test

import (
	"errors"
	"fmt"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
	"github.com/ajitpratap0/reservoir/pkg/pool"
)

type Bullet struct {
	ID     int
	Active bool
}

func Example() {
	next := 0
	p, err := pool.New(
		func() (*Bullet, error) {
			next++
			return &Bullet{ID: next}, nil
		},
		func(b *Bullet) { fmt.Println("destroy", b.ID) },
		pool.WithCapacity(2),
	)
	if err != nil {
		panic(err)
	}

	p.OnRetrieved(func(b *Bullet) { b.Active = true })
	p.OnReturned(func(b *Bullet) { b.Active = false })

	b, _ := p.Retrieve()
	fmt.Println("retrieved", b.ID, b.Active)
	_ = p.Return(b)
	fmt.Println("returned", b.ID, b.Active)
	_ = p.Teardown()

	// Output:
	// retrieved 2 true
	// returned 2 false
	// destroy 2
	// destroy 1
}

func ExampleWithRecycle() {
	next := 0
	p, _ := pool.New(
		func() (*Bullet, error) {
			next++
			return &Bullet{ID: next}, nil
		},
		nil,
		pool.WithCapacity(1),
		pool.WithRecycle(pool.RecycleFIFO),
	)
	p.OnRecycled(func(b *Bullet) { fmt.Println("reclaimed", b.ID) })

	first, _ := p.Retrieve()
	second, _ := p.Retrieve()
	fmt.Println(first == second, p.Stats().Created)

	// Output:
	// reclaimed 1
	// true 1
}

func Example_exhausted() {
	p, _ := pool.New(func() (*Bullet, error) { return &Bullet{}, nil }, nil, pool.WithCapacity(1))

	_, _ = p.Retrieve()
	_, err := p.Retrieve()
	fmt.Println(errors.Is(err, rerrors.ErrPoolExhausted))

	// Output:
	// true
}
