package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/saleflow/backend/internal/hierarchy"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/reporting"
	"github.com/saleflow/backend/internal/store"
)

// Directory loads the organization snapshot most operations start from.
type Directory struct {
	store store.Store
}

func NewDirectory(st store.Store) *Directory {
	return &Directory{store: st}
}

// Index fetches users and departments in parallel and indexes them.
func (d *Directory) Index(ctx context.Context) (*hierarchy.Index, error) {
	var users []models.User
	var depts []models.Department

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = d.store.ListUsers(gctx)
		return storeErr("list users", err)
	})
	g.Go(func() error {
		var err error
		depts, err = d.store.ListDepartments(gctx)
		return storeErr("list departments", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hierarchy.NewIndex(users, depts), nil
}

// Actor returns the indexed copy of userID.
func (d *Directory) Actor(ctx context.Context, userID string) (models.User, *hierarchy.Index, error) {
	ix, err := d.Index(ctx)
	if err != nil {
		return models.User{}, nil, err
	}
	u, ok := ix.User(userID)
	if !ok {
		return models.User{}, nil, &Error{Kind: ErrNotFound, Msg: "Người dùng không tồn tại."}
	}
	return u, ix, nil
}

// Records fetches the three transactional collections in parallel. An empty
// userID loads everyone's.
func (d *Directory) Records(ctx context.Context, userID string) (reporting.Records, error) {
	var rec reporting.Records

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec.Appointments, err = d.store.ListAppointments(gctx, userID)
		return storeErr("list appointments", err)
	})
	g.Go(func() error {
		var err error
		rec.Consultations, err = d.store.ListConsultations(gctx, userID)
		return storeErr("list consultations", err)
	})
	g.Go(func() error {
		var err error
		rec.Revenues, err = d.store.ListRevenues(gctx, userID)
		return storeErr("list revenues", err)
	})
	if err := g.Wait(); err != nil {
		return reporting.Records{}, err
	}
	return rec, nil
}
