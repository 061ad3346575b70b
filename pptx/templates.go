package pptx

import (
	"bytes"
	"encoding/xml"
	"strings"
	"text/template"
)

const namespaces = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

const groupShape = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

var contentTypesTmpl = `
[[ define "contentTypes" ]]<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Default Extension="jpeg" ContentType="image/jpeg"/>
[[ range . ]]<Override PartName="[[ .PartName ]]" ContentType="[[ .ContentType ]]"/>
[[ end ]]</Types>[[ end ]]
`

var relsTmpl = `
[[ define "rels" ]]<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
[[ range . ]]<Relationship Id="[[ .ID ]]" Type="[[ .Type ]]" Target="[[ .Target ]]"/>
[[ end ]]</Relationships>[[ end ]]
`

var docPropsTmpl = `
[[ define "core" ]]<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:title>[[ xml .Title ]]</dc:title><dc:creator>[[ xml .Creator ]]</dc:creator><cp:lastModifiedBy>[[ xml .Creator ]]</cp:lastModifiedBy><cp:revision>1</cp:revision>
<dcterms:created xsi:type="dcterms:W3CDTF">[[ .Created ]]</dcterms:created><dcterms:modified xsi:type="dcterms:W3CDTF">[[ .Created ]]</dcterms:modified>
</cp:coreProperties>[[ end ]]

[[ define "app" ]]<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">
<Application>[[ xml .Creator ]]</Application><PresentationFormat>On-screen Show (16:9)</PresentationFormat><Slides>[[ .Slides ]]</Slides><Notes>[[ .Notes ]]</Notes>
</Properties>[[ end ]]
`

var presentationTmpl = `
[[ define "presentation" ]]<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation ` + namespaces + ` saveSubsetFonts="1">
<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>
<p:notesMasterIdLst><p:notesMasterId r:id="rId2"/></p:notesMasterIdLst>
[[ if .Slides ]]<p:sldIdLst>[[ range .Slides ]]<p:sldId id="[[ .ID ]]" r:id="[[ .RelID ]]"/>[[ end ]]</p:sldIdLst>[[ end ]]
<p:sldSz cx="[[ .Width ]]" cy="[[ .Height ]]"/><p:notesSz cx="6858000" cy="9144000"/>
<p:defaultTextStyle><a:defPPr><a:defRPr lang="en-US"/></a:defPPr></p:defaultTextStyle>
</p:presentation>[[ end ]]
`

var slideTmpl = `
[[ define "slide" ]]<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld ` + namespaces + `><p:cSld><p:spTree>` + groupShape + `
[[ range .Shapes ]][[ if .Text ]][[ template "textShape" . ]][[ else ]][[ template "picShape" . ]][[ end ]]
[[ end ]]</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>[[ end ]]

[[ define "xfrm" ]]<a:xfrm><a:off x="[[ .X ]]" y="[[ .Y ]]"/><a:ext cx="[[ .W ]]" cy="[[ .H ]]"/></a:xfrm>[[ end ]]

[[ define "textShape" ]]<p:sp><p:nvSpPr><p:cNvPr id="[[ .ID ]]" name="[[ .Name ]]"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
<p:spPr>[[ template "xfrm" .Frame ]]<a:prstGeom prst="rect"><a:avLst/></a:prstGeom>[[ with .Text.Fill ]]<a:solidFill><a:srgbClr val="[[ . ]]"/></a:solidFill>[[ else ]]<a:noFill/>[[ end ]]</p:spPr>
<p:txBody><a:bodyPr wrap="square" rtlCol="0" anchor="t"/><a:lstStyle/>[[ range .Text.Paragraphs ]][[ template "paragraph" . ]][[ end ]]</p:txBody></p:sp>[[ end ]]

[[ define "paragraph" ]]<a:p>[[ if .Bullet ]]<a:pPr marL="[[ .MarL ]]" lvl="[[ .Level ]]" indent="-285750"><a:buFont typeface="Arial"/><a:buChar char="&#8226;"/></a:pPr>[[ else ]]<a:pPr><a:buNone/></a:pPr>[[ end ]]
[[- range .Runs ]][[ if .Break ]]<a:br>[[ template "rPr" . ]]</a:br>[[ else ]]<a:r>[[ template "rPr" . ]]<a:t>[[ xml .Text ]]</a:t></a:r>[[ end ]][[ end -]]
<a:endParaRPr lang="en-US"[[ if .Size ]] sz="[[ .Size ]]"[[ end ]] dirty="0"/></a:p>[[ end ]]

[[ define "rPr" ]]<a:rPr lang="en-US"[[ if .Size ]] sz="[[ .Size ]]"[[ end ]][[ if .Bold ]] b="1"[[ end ]][[ if .Italic ]] i="1"[[ end ]] dirty="0">
[[- with .Color ]]<a:solidFill><a:srgbClr val="[[ . ]]"/></a:solidFill>[[ end -]]
[[- with .Face ]]<a:latin typeface="[[ xml . ]]"/><a:cs typeface="[[ xml . ]]"/>[[ end -]]
</a:rPr>[[ end ]]

[[ define "picShape" ]]<p:pic><p:nvPicPr><p:cNvPr id="[[ .ID ]]" name="[[ .Name ]]"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>
<p:blipFill><a:blip r:embed="[[ .RelID ]]"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>
<p:spPr>[[ template "xfrm" .Frame ]]<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>[[ end ]]
`

var notesTmpl = `
[[ define "notesSlide" ]]<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:notes ` + namespaces + `><p:cSld><p:spTree>` + groupShape + `
<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr><a:spLocks noGrp="1" noRot="1" noChangeAspect="1"/></p:cNvSpPr><p:nvPr><p:ph type="sldImg" idx="2"/></p:nvPr></p:nvSpPr><p:spPr/></p:sp>
<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" sz="quarter" idx="3"/></p:nvPr></p:nvSpPr><p:spPr/>
<p:txBody><a:bodyPr/><a:lstStyle/>[[ range .Lines ]]<a:p>[[ if . ]]<a:r><a:rPr lang="en-US" dirty="0"/><a:t>[[ xml . ]]</a:t></a:r>[[ end ]]</a:p>[[ end ]]</p:txBody></p:sp>
</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:notes>[[ end ]]
`

var partTemplates = newRenderer()

func newRenderer() *template.Template {
	var err error
	tmpl := template.New("parts").Delims("[[", "]]").Funcs(template.FuncMap{
		"xml": escapeXML,
	})
	for _, tmplStr := range []string{contentTypesTmpl, relsTmpl, docPropsTmpl, presentationTmpl, slideTmpl, notesTmpl} {
		tmpl, err = tmpl.Parse(tmplStr)
		if err != nil {
			panic(err)
		}
	}
	return tmpl
}

func renderPart(name string, data interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := partTemplates.ExecuteTemplate(buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func escapeXML(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}
