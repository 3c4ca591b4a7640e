// Package factory instantiates pluggable modules (record store backends,
// metrics sinks) from configuration. A module is described by a type name
// and a map of raw settings which the factory decodes into its own struct:
//
//	reg := factory.NewRegistry[store.RecordStore]()
//	_ = reg.Register("csv", func(conf map[string]any) (store.RecordStore, error) {
//	    var c struct{ Dir string `json:"dir"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return csvstore.New(c.Dir)
//	})
//	rs, err := reg.Create(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"dir": "data"}})
package factory
