// Package blobpack implements a seekable container format for collections
// of file trees.
//
// A container is a single file holding a fixed header, a self-describing
// JSON index, and a payload region of concatenated zlib-compressed tar
// archives. The index is read entirely into memory on open; entry payloads
// are addressed by offset and length, so individual entries can be
// extracted without unpacking the whole container.
//
// Containers come in three kinds sharing one layout:
//   - [Applications]: an immutable application catalog
//   - [Binaries]: an immutable binary/tool catalog
//   - [UserData]: a mutable per-principal data store
//
// # Quick Start
//
// Build a catalog:
//
//	w, err := blobpack.NewWriter(blobpack.Applications, "apps.blob")
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	err = w.Add(ctx, &blobpack.ApplicationEntry{
//	    EntryBase: blobpack.EntryBase{Key: "webserver", Version: "2.1.0"},
//	}, "./apps/webserver")
//	...
//	err = w.Build()
//
// Extract entries with their dependency closure:
//
//	r, err := blobpack.Open(blobpack.Applications, "apps.blob")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	results := r.ExtractMany([]string{"db-client"}, "./extracted",
//	    blobpack.ExtractWithDependencies(true),
//	)
//
// Mutate a user-data container through [Store]:
//
//	s, err := blobpack.OpenStore("userdata.blob")
//	...
//	err = s.Update(ctx, "user123", "./user123_data", blobpack.UpdateMerge)
//	err = s.Save()
package blobpack
