// Package source implements cache.Loader on top of blob stores.
//
// Layout maps a key to the blob path the application stores it under:
//
//	post image     /<owner>/<post>.webp
//	avatar         /<user>/profile_picture.webp
//	drawing        /<owner>/<id>.webp
//	drawing layer  /<owner>/<id>/layer_<n>.webp
//	local drawing  <id>/data.webp
//
// BlobLoader reads that path from a blobstore.BlobStore. Fallback serves a
// shared placeholder for missing avatars. Chain routes key kinds to
// different loaders, typically local drawings to a LocalStore and everything
// else to the remote store:
//
//	remote := source.NewBlobLoader(s3Store, source.DefaultLayout())
//	local := source.NewBlobLoader(blobstore.NewLocalStore(dataDir), source.DefaultLayout())
//
//	loader := source.NewChain(source.NewAvatarFallback(remote, s3Store)).
//	    Route(model.KindLocalDrawing, local)
package source
