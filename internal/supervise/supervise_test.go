package supervise

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmesh/scledit/api"
	"github.com/gridmesh/scledit/internal/edit"
	"github.com/gridmesh/scledit/internal/scl"
	"github.com/gridmesh/scledit/internal/subscribe"
)

const fixture = `
<SCL version="2007" revision="B">
  <IED name="PUB">
    <AccessPoint name="AP1">
      <Server>
        <LDevice inst="LD0">
          <LN0 lnClass="LLN0" inst="">
            <GSEControl name="gcb1"/>
            <GSEControl name="gcb2"/>
            <GSEControl name="gcb3"/>
          </LN0>
        </LDevice>
      </Server>
    </AccessPoint>
  </IED>
  <IED name="SUB" maxGo="2">
    <AccessPoint name="AP1">
      <Server>
        <LDevice inst="LD0">
          <LN0 lnClass="LLN0" inst=""/>
          <LN lnClass="LGOS" inst="1" lnType="lgosT">
            <DOI name="GoCBRef">
              <DAI name="setSrcRef" valKind="RO" valImport="true"/>
            </DOI>
          </LN>
          <LN lnClass="PTRC" inst="1" lnType="ptrcT"/>
        </LDevice>
      </Server>
    </AccessPoint>
  </IED>
</SCL>
`

func parse(t *testing.T, xml string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	return doc
}

func control(t *testing.T, doc *etree.Document, name string) *etree.Element {
	t.Helper()
	for _, cb := range scl.Descendants(doc.Root(), scl.TagGSEControl) {
		if scl.Attr(cb, "name") == name {
			return cb
		}
	}
	t.Fatalf("control block %s not in fixture", name)
	return nil
}

func dispatch(t *testing.T, batch api.Batch) {
	t.Helper()
	require.NoError(t, edit.Applier{}.Dispatch(batch))
}

func TestAllowedPreconditions(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")
	cb := control(t, doc, "gcb1")

	assert.True(t, Allowed(doc, subscribe.GSE, cb, sub))

	// Oldest edition disables supervision.
	doc.Root().CreateAttr("version", "2003")
	assert.False(t, Allowed(doc, subscribe.GSE, cb, sub))
	doc.Root().CreateAttr("version", "2007")

	// No monitoring-class instance for the sampled-stream kind.
	assert.False(t, Allowed(doc, subscribe.SampledValue, cb, sub))

	// Zero capacity.
	sub.CreateAttr("maxGo", "0")
	assert.False(t, Allowed(doc, subscribe.GSE, cb, sub))
	sub.CreateAttr("maxGo", "2")

	// Unresolvable reference.
	assert.False(t, Allowed(doc, subscribe.GSE, etree.NewElement(scl.TagGSEControl), sub))
}

func TestInstantiateReusesEmptySlot(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")
	cb := control(t, doc, "gcb1")

	batch := Instantiate(doc, subscribe.GSE, cb, sub)
	// Existing LN, DOI, and DAI are reused: only the value lands.
	require.Len(t, batch, 1)
	dispatch(t, batch)

	lgos := scl.ClassNodes(sub, "LGOS")
	require.Len(t, lgos, 1)
	assert.Equal(t, "PUBLD0/LLN0.gcb1", refText(lgos[0], subscribe.GSE))
	assert.Equal(t, 1, Occupied(sub, subscribe.GSE))
}

func TestInstantiateIsIdempotentViaAllowed(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")
	cb := control(t, doc, "gcb1")

	dispatch(t, Instantiate(doc, subscribe.GSE, cb, sub))

	// Supervising the same control block twice is refused.
	assert.False(t, Allowed(doc, subscribe.GSE, cb, sub))
	assert.Empty(t, Instantiate(doc, subscribe.GSE, cb, sub))
}

func TestInstantiateSynthesizesRecord(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")
	dispatch(t, Instantiate(doc, subscribe.GSE, control(t, doc, "gcb1"), sub))

	batch := Instantiate(doc, subscribe.GSE, control(t, doc, "gcb2"), sub)
	// Fresh LN, DOI, DAI, and the value.
	require.Len(t, batch, 4)
	dispatch(t, batch)

	lgos := scl.ClassNodes(sub, "LGOS")
	require.Len(t, lgos, 2)
	fresh := lgos[1]
	assert.Equal(t, "2", scl.Attr(fresh, "inst"), "lowest unused instance number")
	assert.Equal(t, "lgosT", scl.Attr(fresh, "lnType"), "type copied from sibling")
	assert.True(t, EngineCreated(fresh))
	assert.False(t, EngineCreated(lgos[0]))
	assert.Equal(t, "PUBLD0/LLN0.gcb2", refText(fresh, subscribe.GSE))

	// Placed directly after the last monitoring instance, before PTRC.
	next := edit.NextElement(fresh)
	require.NotNil(t, next)
	assert.Equal(t, "PTRC", scl.Attr(next, "lnClass"))

	// Attributes of the value holder were copied from the first instance.
	dai := valueHolder(fresh, subscribe.GSE)
	require.NotNil(t, dai)
	assert.Equal(t, "RO", scl.Attr(dai, "valKind"))
	assert.Equal(t, "true", scl.Attr(dai, "valImport"))
}

func TestCapacityMonotonicity(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")
	dispatch(t, Instantiate(doc, subscribe.GSE, control(t, doc, "gcb1"), sub))
	dispatch(t, Instantiate(doc, subscribe.GSE, control(t, doc, "gcb2"), sub))

	require.Equal(t, 2, Occupied(sub, subscribe.GSE))
	cb3 := control(t, doc, "gcb3")
	assert.False(t, Allowed(doc, subscribe.GSE, cb3, sub))
	assert.Empty(t, Instantiate(doc, subscribe.GSE, cb3, sub))

	// Clearing one slot's value frees capacity again.
	first := scl.ClassNodes(sub, "LGOS")[0]
	dai := valueHolder(first, subscribe.GSE)
	dai.RemoveChild(dai.SelectElement(scl.TagVal))
	assert.Equal(t, 1, Occupied(sub, subscribe.GSE))
	assert.True(t, Allowed(doc, subscribe.GSE, cb3, sub))
}

func TestRemoveEngineCreatedDeletesWholeRecord(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")
	dispatch(t, Instantiate(doc, subscribe.GSE, control(t, doc, "gcb1"), sub))
	dispatch(t, Instantiate(doc, subscribe.GSE, control(t, doc, "gcb2"), sub))
	require.Len(t, scl.ClassNodes(sub, "LGOS"), 2)

	batch := Remove(subscribe.GSE, control(t, doc, "gcb2"), sub)
	require.Len(t, batch, 1)
	dispatch(t, batch)

	lgos := scl.ClassNodes(sub, "LGOS")
	require.Len(t, lgos, 1)
	assert.Equal(t, "1", scl.Attr(lgos[0], "inst"))
}

func TestRemoveUserRecordKeepsScaffolding(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")
	cb := control(t, doc, "gcb1")
	dispatch(t, Instantiate(doc, subscribe.GSE, cb, sub))

	batch := Remove(subscribe.GSE, cb, sub)
	require.Len(t, batch, 1)
	dispatch(t, batch)

	// The user-authored logical node survives; only the container is gone.
	lgos := scl.ClassNodes(sub, "LGOS")
	require.Len(t, lgos, 1)
	assert.Nil(t, container(lgos[0], subscribe.GSE))
	assert.Equal(t, 0, Occupied(sub, subscribe.GSE))
}

func TestRemoveUnknownReferenceIsNoop(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")
	assert.Empty(t, Remove(subscribe.GSE, control(t, doc, "gcb1"), sub))
	assert.Empty(t, Remove(subscribe.GSE, etree.NewElement(scl.TagGSEControl), sub))
}

func TestRemoveFindsOnlyItsOwnControl(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")
	dispatch(t, Instantiate(doc, subscribe.GSE, control(t, doc, "gcb1"), sub))

	// A different control block does not tear down gcb1's record.
	assert.Empty(t, Remove(subscribe.GSE, control(t, doc, "gcb2"), sub))
	assert.Equal(t, 1, Occupied(sub, subscribe.GSE))
}

func TestModificationAllowedFromInstance(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")

	assert.True(t, ModificationAllowed(doc, subscribe.GSE, sub))

	first := scl.ClassNodes(sub, "LGOS")[0]
	dai := valueHolder(first, subscribe.GSE)
	dai.CreateAttr("valImport", "false")
	assert.False(t, ModificationAllowed(doc, subscribe.GSE, sub))

	dai.CreateAttr("valImport", "true")
	dai.CreateAttr("valKind", "Set")
	assert.False(t, ModificationAllowed(doc, subscribe.GSE, sub))
}

func TestModificationAllowedFromTemplates(t *testing.T) {
	doc := parse(t, `
<SCL version="2007" revision="B">
  <IED name="SUB" maxGo="1">
    <AccessPoint name="AP1"><Server><LDevice inst="LD0">
      <LN lnClass="LGOS" inst="1" lnType="lgosT">
        <DOI name="GoCBRef"><DAI name="setSrcRef"/></DOI>
      </LN>
    </LDevice></Server></AccessPoint>
  </IED>
  <DataTypeTemplates>
    <LNodeType id="lgosT" lnClass="LGOS"><DO name="GoCBRef" type="goCBRefT"/></LNodeType>
    <DOType id="goCBRefT"><DA name="setSrcRef" valKind="RO" valImport="true" fc="SP"/></DOType>
  </DataTypeTemplates>
</SCL>`)
	sub := scl.IED(doc, "SUB")
	assert.True(t, ModificationAllowed(doc, subscribe.GSE, sub))

	// Break the template chain: neither source resolves.
	templates := doc.Root().SelectElement(scl.TagTemplates)
	templates.Parent().RemoveChild(templates)
	assert.False(t, ModificationAllowed(doc, subscribe.GSE, sub))
}

func TestModificationAllowedInstanceDeniedTemplatesAllow(t *testing.T) {
	doc := parse(t, `
<SCL version="2007" revision="B">
  <IED name="SUB" maxGo="1">
    <AccessPoint name="AP1"><Server><LDevice inst="LD0">
      <LN lnClass="LGOS" inst="1" lnType="lgosT">
        <DOI name="GoCBRef"><DAI name="setSrcRef" valKind="Set"/></DOI>
      </LN>
    </LDevice></Server></AccessPoint>
  </IED>
  <DataTypeTemplates>
    <LNodeType id="lgosT" lnClass="LGOS"><DO name="GoCBRef" type="goCBRefT"/></LNodeType>
    <DOType id="goCBRefT"><DA name="setSrcRef" valKind="RO" valImport="true" fc="SP"/></DOType>
  </DataTypeTemplates>
</SCL>`)
	sub := scl.IED(doc, "SUB")

	// The instance's value holder does not allow modification on its own;
	// the template definitions still do.
	first := scl.ClassNodes(sub, "LGOS")[0]
	assert.False(t, configurable(valueHolder(first, subscribe.GSE)))
	assert.True(t, ModificationAllowed(doc, subscribe.GSE, sub))
}

func TestModificationAllowedWithoutInstances(t *testing.T) {
	doc := parse(t, `<SCL version="2007" revision="B"><IED name="SUB" maxGo="1"/></SCL>`)
	assert.False(t, ModificationAllowed(doc, subscribe.GSE, scl.IED(doc, "SUB")))
}

func TestInstantiateRefusedWhenModificationDisallowed(t *testing.T) {
	doc := parse(t, fixture)
	sub := scl.IED(doc, "SUB")
	first := scl.ClassNodes(sub, "LGOS")[0]
	valueHolder(first, subscribe.GSE).CreateAttr("valImport", "false")

	assert.Empty(t, Instantiate(doc, subscribe.GSE, control(t, doc, "gcb1"), sub))
}
