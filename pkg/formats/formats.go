// Package formats provides parsers for the glTF 2.0 scene description.
//
// Note: the JSON document model lives in gltf.go
// Note: the binary GLB container is handled in glb.go
package formats
