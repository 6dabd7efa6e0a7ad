// Package form decodes multipart/form-data bodies as a stream.
//
// A body is processed with O(1) memory relative to file size: parts are
// pulled one at a time from a [Source], limits are enforced while bytes
// arrive, and file parts are copied straight to disk. No temporary file
// outlives a failed request.
//
// # Consumption Modes
//
// [Request.Collect] drains the whole body. Fields land in a [FieldMap]
// (last value wins), files are written under
//
//	{TmpDir}/{YYYY}/{MM}/{DD}/{HH}/{uuid}{.ext}
//
// and described by [FileRecord]s. Any terminal error removes every file
// written by the call before it returns:
//
//	req, err := form.FromHTTP(r, cfg)
//	if err != nil {
//	    return err
//	}
//	res, err := req.Collect(r.Context())
//	if err != nil {
//	    return err // already cleaned up
//	}
//	defer req.Cleanup(ctx)
//
// [Request.FileStream] returns the first file part as a live [FileStream],
// with the fields before it collected into FileStream.Fields. Crossing the
// file size limit turns into an error from Read, delivered to an OnError
// observer when one is registered.
//
// [Request.Parts] exposes the raw [Source] for callers routing parts
// themselves.
//
// A Request is single-pass; a second consumption fails with
// [ErrAlreadyConsumed].
//
// # Errors
//
// Every terminal condition is an [*Error] with a stable [Code] and an HTTP
// status: limit violations answer 413, malformed bodies, rejected
// filenames and missing files answer 400, storage failures answer 500. Use
// errors.Is against the Err* sentinels, or [StatusOf] and [CodeOf].
package form
