package form

import "context"

// Observer receives lifecycle notifications from collections and streams.
// Implementations run inline with the parse loop and should return quickly.
type Observer interface {
	PartRead(ctx context.Context, class Class)
	FileStored(ctx context.Context, rec FileRecord)
	FileRemoved(ctx context.Context, path string)
	Failed(ctx context.Context, err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) PartRead(context.Context, Class) {}

func (NopObserver) FileStored(context.Context, FileRecord) {}

func (NopObserver) FileRemoved(context.Context, string) {}

func (NopObserver) Failed(context.Context, error) {}

// Observers fans notifications out in order.
type Observers []Observer

func (o Observers) PartRead(ctx context.Context, class Class) {
	for _, ob := range o {
		ob.PartRead(ctx, class)
	}
}

func (o Observers) FileStored(ctx context.Context, rec FileRecord) {
	for _, ob := range o {
		ob.FileStored(ctx, rec)
	}
}

func (o Observers) FileRemoved(ctx context.Context, path string) {
	for _, ob := range o {
		ob.FileRemoved(ctx, path)
	}
}

func (o Observers) Failed(ctx context.Context, err error) {
	for _, ob := range o {
		ob.Failed(ctx, err)
	}
}
