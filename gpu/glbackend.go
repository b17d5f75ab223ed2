package gpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// quadVerts is the one static per-vertex triangle-list quad every cell
// instance reuses; gl_InstanceID (not vertex data) picks the cell.
var quadVerts = [12]float32{
	0, 0, 1, 0, 1, 1,
	0, 0, 1, 1, 0, 1,
}

// GLBackend is the real Backend, driving go-gl the same raw way the
// teacher's glyphs.GlyphRend.Draw does: one VAO, a static per-vertex quad
// buffer at attribute 0, and per-cell data streamed into instanced
// (VertexAttribDivisor 1) buffers at attributes 1/2 — the same
// GenBuffers/VertexAttribPointer/VertexAttribDivisor/BufferData shape as
// glyphs.go's InstancedBuf, against the spec's two-program (background/
// foreground) per-layer pipeline instead of a single per-glyph-quad batch.
// Per-cell words are packed as uint32 but uploaded through a float
// attribute and unpacked with floatBitsToUint in the shader, since
// instanced integer attributes would otherwise need a GL 4.3 context this
// repo's pinned go-gl/gl/v4.1-core binding doesn't provide.
type GLBackend struct {
	quadVBO, colorVBO, glyphVBO uint32
	quadVAO                     uint32

	bgProgram, fgProgram uint32

	intermediateFBO, intermediateTex uint32
	intermediateW, intermediateH     int

	glyphAtlasTex  uint32
	atlasW, atlasH int
}

// NewGLBackend assumes an active GL context (created by the host via SDL2/
// nmage, as in the teacher's main.go) and compiles the background/
// foreground programs.
func NewGLBackend() *GLBackend {
	b := &GLBackend{}

	gl.GenBuffers(1, &b.quadVBO)
	gl.GenBuffers(1, &b.colorVBO)
	gl.GenBuffers(1, &b.glyphVBO)
	gl.GenVertexArrays(1, &b.quadVAO)
	b.setupVertexAttribs()

	b.bgProgram = mustCompileProgram(backgroundVertexShader, backgroundFragmentShader)
	b.fgProgram = mustCompileProgram(foregroundVertexShader, foregroundFragmentShader)

	return b
}

// setupVertexAttribs wires the VAO once: attribute 0 is the static
// per-vertex quad corner (divisor 0); attributes 1/2 are the per-cell
// color/glyph words (divisor 1), streamed fresh each frame by
// UploadColorBuffer/UploadGlyphBuffer into the same two buffer objects.
func (b *GLBackend) setupVertexAttribs() {
	gl.BindVertexArray(b.quadVAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, b.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVerts)*4, gl.Ptr(&quadVerts[0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))

	// Per cell: 8 bytes (bg uint32, fg uint32) from encodeColors; only bg
	// (offset 0) feeds the background program.
	gl.BindBuffer(gl.ARRAY_BUFFER, b.colorVBO)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 1, gl.FLOAT, false, 8, gl.PtrOffset(0))
	gl.VertexAttribDivisor(1, 1)

	// Per cell: 4 bytes (packed glyphs.AtlasCoord) from encodeGlyphs.
	gl.BindBuffer(gl.ARRAY_BUFFER, b.glyphVBO)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 1, gl.FLOAT, false, 4, gl.PtrOffset(0))
	gl.VertexAttribDivisor(2, 1)

	gl.BindVertexArray(0)
}

func (b *GLBackend) MaxTextureSize() int {
	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
	return int(maxSize)
}

func (b *GLBackend) CreateAlphaTexture(w, h int) TextureHandle {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R8, int32(w), int32(h), 0, gl.RED, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	return TextureHandle(tex)
}

func (b *GLBackend) DeleteTexture(tex TextureHandle) {
	t := uint32(tex)
	gl.DeleteTextures(1, &t)
}

func (b *GLBackend) CopyAlphaRegion(dst TextureHandle, dstX, dstY int, src TextureHandle, srcX, srcY, w, h int) {
	// Read back the source region client-side and re-upload; simpler and
	// more portable across GL 4.1 core than glCopyImageSubData (core only
	// since 4.3), and compaction/growth are rare relative to per-frame
	// work.
	gl.BindTexture(gl.TEXTURE_2D, uint32(src))
	var srcW, srcH int32
	gl.GetTexLevelParameteriv(gl.TEXTURE_2D, 0, gl.TEXTURE_WIDTH, &srcW)
	gl.GetTexLevelParameteriv(gl.TEXTURE_2D, 0, gl.TEXTURE_HEIGHT, &srcH)
	full := make([]byte, int(srcW)*int(srcH))
	gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(&full[0]))

	region := make([]byte, w*h)
	for row := 0; row < h; row++ {
		start := (srcY+row)*int(srcW) + srcX
		copy(region[row*w:row*w+w], full[start:start+w])
	}

	gl.BindTexture(gl.TEXTURE_2D, uint32(dst))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(dstX), int32(dstY), int32(w), int32(h), gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(&region[0]))
}

func (b *GLBackend) UploadAlphaSubImage(dst TextureHandle, x, y, w, h int, pixels []byte) {
	if len(pixels) == 0 {
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, uint32(dst))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(x), int32(y), int32(w), int32(h), gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(&pixels[0]))
}

func (b *GLBackend) UploadColorBuffer(data []byte) {
	gl.BindBuffer(gl.ARRAY_BUFFER, b.colorVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(data), gl.Ptr(data), gl.STREAM_DRAW)
}

func (b *GLBackend) UploadGlyphBuffer(layer int, data []byte) {
	gl.BindBuffer(gl.ARRAY_BUFFER, b.glyphVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(data), gl.Ptr(data), gl.STREAM_DRAW)
}

func (b *GLBackend) BindIntermediateTarget(contentW, contentH int) {
	if b.intermediateFBO == 0 || b.intermediateW != contentW || b.intermediateH != contentH {
		if b.intermediateFBO != 0 {
			gl.DeleteFramebuffers(1, &b.intermediateFBO)
			gl.DeleteTextures(1, &b.intermediateTex)
		}

		gl.GenFramebuffers(1, &b.intermediateFBO)
		gl.GenTextures(1, &b.intermediateTex)
		gl.BindTexture(gl.TEXTURE_2D, b.intermediateTex)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(contentW), int32(contentH), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

		gl.BindFramebuffer(gl.FRAMEBUFFER, b.intermediateFBO)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, b.intermediateTex, 0)

		b.intermediateW, b.intermediateH = contentW, contentH
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, b.intermediateFBO)
	gl.Viewport(0, 0, int32(contentW), int32(contentH))
}

func (b *GLBackend) BindDefaultFramebuffer() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (b *GLBackend) SetViewport(r Rect) {
	gl.Viewport(int32(r.X), int32(r.Y), int32(r.W), int32(r.H))
}

func (b *GLBackend) Clear() {
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (b *GLBackend) SetBackgroundUniforms(screenW, screenH, glyphW, glyphH int) {
	gl.UseProgram(b.bgProgram)
	setVec2Uniform(b.bgProgram, "screen_size", float32(screenW), float32(screenH))
	setVec2Uniform(b.bgProgram, "glyph_size", float32(glyphW), float32(glyphH))
}

func (b *GLBackend) SetForegroundUniforms(screenW, screenH, glyphW, glyphH, fthick int, lineColor [3]float32) {
	gl.UseProgram(b.fgProgram)
	setVec2Uniform(b.fgProgram, "screen_size", float32(screenW), float32(screenH))
	setVec2Uniform(b.fgProgram, "glyph_size", float32(glyphW), float32(glyphH))
	setVec2Uniform(b.fgProgram, "atlas_size", float32(b.atlasW), float32(b.atlasH))
	setFloatUniform(b.fgProgram, "fthick", float32(fthick))
	setVec3Uniform(b.fgProgram, "line_color", lineColor[0], lineColor[1], lineColor[2])

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, b.glyphAtlasTex)
	loc := gl.GetUniformLocation(b.fgProgram, gl.Str("atlas\x00"))
	gl.Uniform1i(loc, 0)
}

// BindGlyphAtlas records the glyph atlas texture and its pixel size;
// SetForegroundUniforms binds it to texture unit 0 and points the
// foreground program's "atlas" sampler at it, per spec.md §4.3 step 8.
func (b *GLBackend) BindGlyphAtlas(tex TextureHandle, texW, texH int) {
	b.glyphAtlasTex = uint32(tex)
	b.atlasW, b.atlasH = texW, texH
}

func (b *GLBackend) DrawInstancedCells(cellCount int) {
	gl.BindVertexArray(b.quadVAO)
	gl.DrawArraysInstanced(gl.TRIANGLES, 0, 6, int32(cellCount))
}

func (b *GLBackend) BlitIntermediateToDefault(viewport Rect) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, b.intermediateFBO)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(
		0, 0, int32(b.intermediateW), int32(b.intermediateH),
		int32(viewport.X), int32(viewport.Y), int32(viewport.X+viewport.W), int32(viewport.Y+viewport.H),
		gl.COLOR_BUFFER_BIT, gl.LINEAR,
	)
}

func (b *GLBackend) SwapBuffers() {
	// Swapping the window is the host's responsibility (it owns the SDL
	// window); the frame pipeline calls this last so a host backend can
	// hook in its own swap if it owns one directly.
}

func setVec2Uniform(program uint32, name string, x, y float32) {
	loc := gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	gl.Uniform2f(loc, x, y)
}

func setVec3Uniform(program uint32, name string, x, y, z float32) {
	loc := gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	gl.Uniform3f(loc, x, y, z)
}

func setFloatUniform(program uint32, name string, v float32) {
	loc := gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	gl.Uniform1f(loc, v)
}

func mustCompileProgram(vertexSrc, fragmentSrc string) uint32 {
	vs := mustCompileShader(vertexSrc, gl.VERTEX_SHADER)
	fs := mustCompileShader(fragmentSrc, gl.FRAGMENT_SHADER)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(log))
		panic(fmt.Sprintf("gpu: program link failed: %s", log))
	}

	gl.DeleteShader(vs)
	gl.DeleteShader(fs)
	return program
}

func mustCompileShader(src string, shaderType uint32) uint32 {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		panic(fmt.Sprintf("gpu: shader compile failed: %s", log))
	}

	return shader
}

// The vertex stage synthesizes each cell's quad from gl_InstanceID, per
// spec.md §4.3's rationale ("all per-cell geometry is synthesized from
// instance ID in the vertex stage; the CPU only uploads two tightly packed
// buffers per frame"). Per-cell data arrives as instanced vertex
// attributes (divisor 1), not SSBOs, so these compile and run on the
// GL 4.1 core context this repo targets.
const backgroundVertexShader = `#version 410 core
layout(location = 0) in vec2 quad_pos;
layout(location = 1) in float bg_bits;

uniform vec2 screen_size;
uniform vec2 glyph_size;

out vec4 bg_color;

void main() {
	int cell = gl_InstanceID;
	vec2 cellPos = vec2(mod(float(cell), screen_size.x), floor(float(cell) / screen_size.x));
	vec2 pos = (cellPos + quad_pos) * glyph_size;
	vec2 ndc = (pos / (screen_size * glyph_size)) * 2.0 - 1.0;
	gl_Position = vec4(ndc.x, -ndc.y, 0, 1);

	uint packed = floatBitsToUint(bg_bits);
	bg_color = vec4(
		float((packed >> 16) & 0xFFu) / 255.0,
		float((packed >> 8) & 0xFFu) / 255.0,
		float((packed >> 0) & 0xFFu) / 255.0,
		1.0
	);
}
`

const backgroundFragmentShader = `#version 410 core
in vec4 bg_color;
out vec4 frag_color;
void main() { frag_color = bg_color; }
`

const foregroundVertexShader = `#version 410 core
layout(location = 0) in vec2 quad_pos;
layout(location = 2) in float glyph_bits;

uniform vec2 screen_size;
uniform vec2 glyph_size;

out vec2 glyph_uv;
flat out uint glyph_word;

void main() {
	int cell = gl_InstanceID;
	vec2 cellPos = vec2(mod(float(cell), screen_size.x), floor(float(cell) / screen_size.x));
	vec2 pos = (cellPos + quad_pos) * glyph_size;
	vec2 ndc = (pos / (screen_size * glyph_size)) * 2.0 - 1.0;
	gl_Position = vec4(ndc.x, -ndc.y, 0, 1);

	glyph_uv = quad_pos;
	glyph_word = floatBitsToUint(glyph_bits);
}
`

const foregroundFragmentShader = `#version 410 core
uniform sampler2D atlas;
uniform vec2 glyph_size;
uniform vec2 atlas_size;
uniform float fthick;
uniform vec3 line_color;

in vec2 glyph_uv;
flat in uint glyph_word;

out vec4 frag_color;

void main() {
	uint col = glyph_word & 0x7FFFu;
	uint row = (glyph_word >> 15) & 0x7FFFu;
	uint advance = (glyph_word >> 30) & 0x3u;
	if (advance == 0u) discard;

	vec2 texel = (vec2(float(col), float(row)) + glyph_uv) * glyph_size;
	float a = texture(atlas, texel / atlas_size).r;
	vec3 rgb = line_color.x < 0.0 ? vec3(1.0) : line_color;
	frag_color = vec4(rgb, a);
}
`
