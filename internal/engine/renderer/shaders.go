package renderer

import "github.com/Faultbox/mhx2/pkg/math"

var lightDir = math.Vec3{X: 0.3, Y: 0.5, Z: 1}.Normalize()

const vertexShader = `#version 410 core
layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;
layout (location = 3) in vec4 aColor;

uniform mat4 uMVP;
uniform mat4 uModel;

out vec3 vNormal;
out vec3 vWorld;
out vec2 vTexCoord;
out vec4 vColor;

void main() {
    vec4 world = uModel * vec4(aPosition, 1.0);
    vWorld = world.xyz;
    vNormal = mat3(uModel) * aNormal;
    vTexCoord = vec2(aTexCoord.x, 1.0 - aTexCoord.y);
    vColor = aColor;
    gl_Position = uMVP * vec4(aPosition, 1.0);
}
`

// Buffers without normals are lit with the screen space face normal.
const fragmentShader = `#version 410 core
in vec3 vNormal;
in vec3 vWorld;
in vec2 vTexCoord;
in vec4 vColor;

uniform sampler2D uTexture;
uniform vec3 uLightDir;
uniform vec4 uColor;
uniform bool uHasNormals;
uniform bool uHasColors;

out vec4 FragColor;

void main() {
    vec3 n = uHasNormals ? normalize(vNormal) : normalize(cross(dFdx(vWorld), dFdy(vWorld)));
    float light = 0.35 + 0.65 * abs(dot(n, uLightDir));
    vec4 base = uHasColors ? vColor : uColor;
    vec4 color = base * texture(uTexture, vTexCoord);
    if (color.a < 0.01) {
        discard;
    }
    FragColor = vec4(color.rgb * light, color.a);
}
`
