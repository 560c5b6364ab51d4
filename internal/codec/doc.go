// Package codec is the JSON codec shared by the snapshot files and the backup log.
// Builds use goccy/go-json; the sonic build tag switches to bytedance/sonic.
package codec
