// Package render turns a render request into a single ffmpeg invocation.
//
// Build runs a fixed catalog of stage generators (crop, zoom, template,
// subtitles) against the request, the probed media properties and the
// resolved assets, and wires the applicable stages into a labelled chain.
// Assemble serializes that chain into -filter_complex syntax and adds the
// extra inputs, stream maps and output options.
//
// Both are pure functions over in-memory values. The only error Build can
// return is a *ConfigError for an unsupported enum value.
package render
