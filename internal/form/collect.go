package form

import (
	"context"
	"errors"
	"io"
)

// Result is the outcome of a successful Collect.
type Result struct {
	Fields FieldMap
	Files  []FileRecord
}

// Collect reads the whole body, storing every file part under the
// configured TmpDir. It either returns all fields and files or an error;
// on error every file written during the call has already been removed.
func (r *Request) Collect(ctx context.Context) (*Result, error) {
	opts := r.cfg.Options
	opts.AutoFields = false

	src, err := r.open(opts)
	if err != nil {
		r.cfg.observer().Failed(ctx, err)
		return nil, err
	}

	c := &collector{
		src:    src,
		opts:   opts,
		mat:    NewMaterializer(r.cfg.TmpDir),
		cfg:    r.cfg,
		fields: FieldMap{},
	}
	res, err := c.run(ctx)
	if err != nil {
		return nil, err
	}
	r.store(res.Files)
	return res, nil
}

type collector struct {
	src  *Source
	opts ParseOptions
	mat  *Materializer
	cfg  Config

	fields FieldMap
	files  []FileRecord

	// partial is the file being written when a copy failed; it is never
	// part of files but must be removed with them.
	partial *FileRecord
}

func (c *collector) run(ctx context.Context) (*Result, error) {
	obs := c.cfg.observer()
	for {
		part, err := c.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return &Result{Fields: c.fields, Files: c.files}, nil
		}
		if err != nil {
			return nil, c.fail(ctx, err)
		}

		class, err := Classify(part)
		if err != nil {
			return nil, c.fail(ctx, err)
		}
		obs.PartRead(ctx, class)

		switch class {
		case ClassField:
			f := part.(*FieldPart)
			c.fields.Set(f.Name, f.Value)

		case ClassEmptyFile:
			if err := part.(*StreamPart).Discard(); err != nil {
				return nil, c.fail(ctx, ErrMalformed.wrap(err))
			}

		case ClassFile:
			sp := part.(*StreamPart)
			if err := checkFile(c.opts, sp); err != nil {
				return nil, c.fail(ctx, err)
			}
			rec, err := c.mat.Materialize(ctx, sp)
			if err != nil {
				if rec.Path != "" {
					c.partial = &rec
				}
				return nil, c.fail(ctx, err)
			}
			c.files = append(c.files, rec)
			c.cfg.logger().Debug("stored uploaded file",
				"field", rec.Field,
				"filename", rec.Filename,
				"path", rec.Path,
				"size", rec.Size,
			)
			obs.FileStored(ctx, rec)
		}
	}
}

// fail removes every file written so far and returns err.
func (c *collector) fail(ctx context.Context, err error) error {
	written := c.files
	if c.partial != nil {
		written = append(written, *c.partial)
	}
	if len(written) > 0 {
		// The request context may already be done; removal must still run.
		RemoveFiles(context.WithoutCancel(ctx), c.cfg.logger(), c.cfg.observer(), written)
	}
	c.files = nil
	c.partial = nil
	c.cfg.observer().Failed(ctx, err)
	return err
}
